package builtin

// Version is set by the linker during the release build.
var Version = "[manual build]"

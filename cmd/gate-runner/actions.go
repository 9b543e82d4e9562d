package main

import (
	"fmt"
	"os"

	cli "gopkg.in/alecthomas/kingpin.v2"
)

// commandTable maps parsed kingpin commands to their actions so main can
// declare the CLI tree and the behavior side by side.
type commandTable map[string]func() error

func (table commandTable) bind(cmd *cli.CmdClause, action func() error) {
	table[cmd.FullCommand()] = action
}

func (table commandTable) run(app *cli.Application) error {
	command, err := app.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	action, ok := table[command]
	if !ok {
		return fmt.Errorf("no action bound for command: %s", command)
	}

	return action()
}

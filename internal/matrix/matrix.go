package matrix

// Axis is one cell of the runtime x system job matrix.
type Axis struct {
	Runtime string
	System  string
}

// Expand returns the cross product of runtimes and systems in declaration
// order: runtimes outer, systems inner. An empty axis contributes a single
// empty value so that a pipeline without a matrix still produces one job.
func Expand(runtimes []string, systems []string) []Axis {
	if len(runtimes) == 0 {
		runtimes = []string{""}
	}

	if len(systems) == 0 {
		systems = []string{""}
	}

	axes := make([]Axis, 0, len(runtimes)*len(systems))
	for _, runtime := range runtimes {
		for _, system := range systems {
			axes = append(axes, Axis{
				Runtime: runtime,
				System:  system,
			})
		}
	}

	return axes
}

// Label is the human readable job name of the cell.
func (axis Axis) Label() string {
	switch {
	case axis.Runtime == "" && axis.System == "":
		return "default"
	case axis.System == "":
		return axis.Runtime
	case axis.Runtime == "":
		return axis.System
	}

	return axis.Runtime + "/" + axis.System
}

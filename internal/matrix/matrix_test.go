package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand_CrossProduct(t *testing.T) {
	test := assert.New(t)

	axes := Expand(
		[]string{"3.6", "3.7", "3.8"},
		[]string{"linux", "windows"},
	)

	test.Len(axes, 6)
	test.Equal(Axis{Runtime: "3.6", System: "linux"}, axes[0])
	test.Equal(Axis{Runtime: "3.6", System: "windows"}, axes[1])
	test.Equal(Axis{Runtime: "3.7", System: "linux"}, axes[2])
	test.Equal(Axis{Runtime: "3.8", System: "windows"}, axes[5])
}

func TestExpand_EmptyAxes(t *testing.T) {
	test := assert.New(t)

	test.Equal([]Axis{{}}, Expand(nil, nil))

	axes := Expand([]string{"3.7"}, nil)
	test.Equal([]Axis{{Runtime: "3.7"}}, axes)

	axes = Expand(nil, []string{"linux"})
	test.Equal([]Axis{{System: "linux"}}, axes)
}

func TestExpand_Deterministic(t *testing.T) {
	test := assert.New(t)

	first := Expand([]string{"a", "b"}, []string{"x", "y"})
	second := Expand([]string{"a", "b"}, []string{"x", "y"})

	test.Equal(first, second)
}

func TestAxis_Label(t *testing.T) {
	test := assert.New(t)

	test.Equal("default", Axis{}.Label())
	test.Equal("3.7", Axis{Runtime: "3.7"}.Label())
	test.Equal("linux", Axis{System: "linux"}.Label())
	test.Equal("3.7/linux", Axis{Runtime: "3.7", System: "linux"}.Label())
}

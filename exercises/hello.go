package exercises

import (
	"github.com/katalab/kata-runner/registry"
	"github.com/katalab/kata-runner/types"
)

// Hello greets name, or the world when name is empty
func Hello(name string) string {
	if name == "" {
		name = "World"
	}
	return "Hello, " + name + "!"
}

var HelloWorld = registry.Exercise{
	ID:          "hello-world",
	Title:       "hello world",
	Description: "Greet the world, or someone in particular",
	Define: func(s *types.Suite) {
		s.AddTest("greets the world", types.Func(func() error {
			return expectEqual("Hello, World!", Hello(""))
		}))
		s.AddTest("greets by name", types.Func(func() error {
			return expectEqual("Hello, Alice!", Hello("Alice"))
		}))
	},
}

package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptions_WithFileDoesNotMutate(t *testing.T) {
	base := Options{Files: make([]string, 1, 4)}
	base.Files[0] = "docker-compose.yml"

	a := base.WithFile("a.yml")
	b := base.WithFile("b.yml")

	assert.Equal(t, []string{"docker-compose.yml"}, base.Files)
	assert.Equal(t, []string{"docker-compose.yml", "a.yml"}, a.Files)
	assert.Equal(t, []string{"docker-compose.yml", "b.yml"}, b.Files)
}

func TestOptions_Args(t *testing.T) {
	assert.Empty(t, Options{}.Args())
	assert.Equal(t,
		[]string{"-p", "shop", "-f", "a.yml", "-f", "b.yml"},
		Options{ProjectName: "shop", Files: []string{"a.yml", "b.yml"}}.Args(),
	)
	assert.Equal(t,
		[]string{"--env-file", "prod.env", "-f", "a.yml"},
		Options{Global: []string{"--env-file", "prod.env"}, Files: []string{"a.yml"}}.Args(),
	)
}

func TestOptions_Project(t *testing.T) {
	assert.Equal(t, "staging", Options{ProjectDirectory: "/home/deploy/staging"}.Project())
	assert.Equal(t, "myapp2", Options{ProjectDirectory: "/srv/My.App 2"}.Project())
	assert.Equal(t, "override", Options{ProjectDirectory: "/srv/x", ProjectName: "Override"}.Project())
}

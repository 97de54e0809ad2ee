package tasks

import (
	"errors"
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, tables map[string][]Entry) *Resolver {
	t.Helper()
	tasks := map[string]Task{}
	for name, entries := range tables {
		task, err := NewTask(name, entries)
		require.NoError(t, err)
		tasks[name] = task
	}
	return NewResolver(tasks, zerolog.Nop())
}

func TestResolver_SingleCommand(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"git": {{Key: "install", Payload: "git"}},
	})

	commands, err := r.Resolve("git", false)
	require.NoError(t, err)
	assert.Equal(t, []CommandSpec{Install("git")}, commands)
}

func TestResolver_MultiplePackages(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"git": {{Key: "install", Payload: []interface{}{"git", "nginx"}}},
	})

	commands, err := r.Resolve("git", false)
	require.NoError(t, err)
	assert.Equal(t, []CommandSpec{Install("git", "nginx")}, commands)
	assert.Equal(t, "apt-get install -y git nginx", commands[0].Shell())
}

func TestResolver_DependenciesComeFirst(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"nginx": {{Key: "install", Payload: "nginx"}},
		"web": {
			{Key: "dependencies", Payload: []interface{}{"nginx"}},
			{Key: "start", Payload: "nginx"},
		},
	})

	commands, err := r.Resolve("web", false)
	require.NoError(t, err)
	assert.Equal(t, []CommandSpec{Install("nginx"), Start("nginx")}, commands)
}

func TestResolver_MultipleDependencies(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"git": {
			{Key: "dependencies", Payload: []interface{}{"nginx", "nginx_start"}},
			{Key: "install", Payload: []interface{}{"git"}},
		},
		"nginx":       {{Key: "install", Payload: []interface{}{"nginx"}}},
		"nginx_start": {{Key: "start", Payload: "nginx"}},
	})

	commands, err := r.Resolve("git", false)
	require.NoError(t, err)
	assert.Equal(t, []CommandSpec{Install("nginx"), Start("nginx"), Install("git")}, commands)
}

func TestResolver_DependencyAsString(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"base": {{Key: "update", Payload: true}},
		"app": {
			{Key: "dependencies", Payload: "base"},
			{Key: "raw", Payload: "echo ok"},
		},
	})

	commands, err := r.Resolve("app", false)
	require.NoError(t, err)
	assert.Equal(t, []CommandSpec{Update(), Raw("echo ok")}, commands)
}

func TestResolver_DeclaredOrderIsKept(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"deploy": {
			{Key: "stop", Payload: "app"},
			{Key: "copy", Payload: map[string]interface{}{"src": "build/", "dest": "/opt/app", "recursive": true}},
			{Key: "start", Payload: "app"},
		},
	})

	commands, err := r.Resolve("deploy", false)
	require.NoError(t, err)
	assert.Equal(t, []CommandSpec{Stop("app"), Copy("build/", "/opt/app", true), Start("app")}, commands)
}

func TestResolver_SelfDependency(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"loop": {
			{Key: "dependencies", Payload: []interface{}{"loop"}},
			{Key: "install", Payload: "git"},
		},
	})

	commands, err := r.Resolve("loop", false)
	assert.Nil(t, commands)

	var cyclic *CyclicDependencyError
	require.True(t, errors.As(err, &cyclic))
	assert.Equal(t, []string{"loop", "loop"}, cyclic.Path)
}

func TestResolver_TransitiveCycle(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"a":    {{Key: "dependencies", Payload: "b"}, {Key: "install", Payload: "a"}},
		"b":    {{Key: "dependencies", Payload: "c"}, {Key: "install", Payload: "b"}},
		"c":    {{Key: "dependencies", Payload: "a"}, {Key: "install", Payload: "c"}},
		"root": {{Key: "dependencies", Payload: "a"}},
	})

	commands, err := r.Resolve("root", false)
	assert.Nil(t, commands)

	var cyclic *CyclicDependencyError
	require.True(t, errors.As(err, &cyclic))
	assert.Equal(t, []string{"a", "b", "c", "a"}, cyclic.Path)
	assert.Contains(t, err.Error(), "a -> b -> c -> a")
}

func TestResolver_DiamondExpandsOnce(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"base":  {{Key: "update", Payload: true}},
		"left":  {{Key: "dependencies", Payload: "base"}, {Key: "install", Payload: "left"}},
		"right": {{Key: "dependencies", Payload: "base"}, {Key: "install", Payload: "right"}},
		"top":   {{Key: "dependencies", Payload: []interface{}{"left", "right"}}},
	})

	commands, err := r.Resolve("top", false)
	require.NoError(t, err)
	assert.Equal(t, []CommandSpec{Update(), Install("left"), Install("right")}, commands)
}

func TestResolver_UnknownTask(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"web": {{Key: "dependencies", Payload: "missing"}},
	})

	_, err := r.Resolve("web", false)
	var unknown *UnknownTaskError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "missing", unknown.Name)

	_, err = r.Resolve("nope", false)
	require.Error(t, err)
}

func TestResolver_UnrecognizedKindIsSkipped(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"web": {
			{Key: "reboot", Payload: true},
			{Key: "install", Payload: "nginx"},
		},
	})

	expansion, err := r.Expand("web", false)
	require.NoError(t, err)
	assert.Equal(t, []CommandSpec{Install("nginx")}, expansion.Commands)
	require.Len(t, expansion.Warnings, 1)
	assert.Equal(t, "reboot", expansion.Warnings[0].Key)
	assert.True(t, errors.Is(expansion.Warnings[0].Err, ErrUnrecognizedCommandKind))
}

func TestResolver_MalformedPayloadFails(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"web": {{Key: "copy", Payload: "not-a-table"}},
	})

	_, err := r.Resolve("web", false)
	require.Error(t, err)
}

func TestResolver_SudoIsThreaded(t *testing.T) {
	r := newTestResolver(t, map[string][]Entry{
		"nginx": {{Key: "install", Payload: "nginx"}},
		"web":   {{Key: "dependencies", Payload: "nginx"}, {Key: "start", Payload: "nginx"}},
	})

	commands, err := r.Resolve("web", true)
	require.NoError(t, err)
	for _, command := range commands {
		assert.True(t, command.Sudo)
		assert.True(t, strings.HasPrefix(command.Shell(), "sudo "))
	}
}

func TestResolver_RepeatedResolutionIsPure(t *testing.T) {
	tables := map[string][]Entry{
		"nginx": {{Key: "install", Payload: []interface{}{"nginx"}}},
		"web":   {{Key: "dependencies", Payload: []interface{}{"nginx"}}, {Key: "start", Payload: "nginx"}},
	}
	tasks := map[string]Task{}
	for name, entries := range tables {
		task, err := NewTask(name, entries)
		require.NoError(t, err)
		tasks[name] = task
	}
	r := NewResolver(tasks, zerolog.Nop())

	// mutating the source table after the snapshot must not leak in
	tasks["web"].Entries[0].Payload = "apache"

	first, err := r.Resolve("web", false)
	require.NoError(t, err)
	second, err := r.Resolve("web", false)
	require.NoError(t, err)
	nginxOnly, err := r.Resolve("nginx", false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []CommandSpec{Install("nginx"), Start("nginx")}, first)
	assert.Equal(t, []CommandSpec{Install("nginx")}, nginxOnly)
}

func TestCommandSpec_RenderedScript(t *testing.T) {
	commands := []CommandSpec{
		Update().WithSudo(true),
		Upgrade().WithSudo(true),
		Install("nginx", "git"),
		Uninstall("apache2"),
		CommandSpec{Kind: KindStart, Args: []string{"nginx", "cron"}},
		Stop("cron"),
		Raw("echo done"),
	}

	var lines []string
	for _, command := range commands {
		lines = append(lines, command.Shell())
	}
	script := strings.Join(lines, "\n") + "\n"

	expected := `sudo apt-get update -y
sudo apt-get upgrade -y
apt-get install -y nginx git
apt-get remove -y apache2
service nginx start && service cron start
service cron stop
echo done
`
	if script != expected {
		t.Errorf("rendered script does not match:\n%s", diff.LineDiff(expected, script))
	}

	assert.Equal(t, "", Copy("a", "b", false).Shell())
}

func TestParseCommandKind(t *testing.T) {
	for kind, name := range kindNames {
		parsed, err := ParseCommandKind(name)
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
		assert.Equal(t, name, parsed.String())
	}

	_, err := ParseCommandKind("dependencies")
	assert.True(t, errors.Is(err, ErrUnrecognizedCommandKind))
}

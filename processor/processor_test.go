package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"

	"github.com/jhump/annoxml/annotations"
	"github.com/jhump/annoxml/extract"
	"github.com/jhump/annoxml/internal/testutil"
	"github.com/jhump/annoxml/sidecar"
)

const usersSource = `package users

import _ "github.com/jhump/annoxml/annotations"

// User is a user.
//
// @annotations.PublicAPI("users")
type User struct {
	Name string
}

// @annotations.ContractAnnotation("name:null => halt", false)
func Find(/* @annotations.NotNull */ name *string) *User { return nil }
`

const plainSource = `package plain

func Nothing() {}
`

func loadProgram(t *testing.T, pkgs ...testutil.Package) *Program {
	t.Helper()
	return NewProgram(testutil.Load(t, testutil.WithAnnotations(pkgs...)...))
}

type recordingModule struct {
	name   string
	events *[]string
	err    error
}

func (m *recordingModule) BeforeCompile(ctx *BeforeCompileContext) error {
	*m.events = append(*m.events, fmt.Sprintf("%s.BeforeCompile(%s)", m.name, ctx.Project.Name))
	return m.err
}

func (m *recordingModule) AfterCompile(ctx *AfterCompileContext) error {
	*m.events = append(*m.events, fmt.Sprintf("%s.AfterCompile(%s)", m.name, ctx.Project.Name))
	return nil
}

func TestConfig_Run(t *testing.T) {
	var events []string
	cfg := Config{
		Project: ProjectContext{Name: "users"},
		Modules: []Module{
			&recordingModule{name: "a", events: &events},
			&recordingModule{name: "b", events: &events},
		},
	}
	require.NoError(t, cfg.Run(context.Background(), loadProgram(t)))
	assert.Equal(t, []string{
		"a.BeforeCompile(users)",
		"b.BeforeCompile(users)",
		"a.AfterCompile(users)",
		"b.AfterCompile(users)",
	}, events)
}

func TestConfig_Run_Error(t *testing.T) {
	var events []string
	failure := errors.New("boom")
	cfg := Config{
		Project: ProjectContext{Name: "users"},
		Modules: []Module{
			&recordingModule{name: "a", events: &events, err: failure},
			&recordingModule{name: "b", events: &events},
		},
	}
	err := cfg.Run(context.Background(), loadProgram(t))
	require.ErrorIs(t, err, failure)
	assert.Equal(t, []string{"a.BeforeCompile(users)"}, events)
}

func TestSelectPackages(t *testing.T) {
	plain := &packages.Package{ID: "example.com/a", PkgPath: "example.com/a", Name: "a"}
	withTests := &packages.Package{ID: "example.com/a [example.com/a.test]", PkgPath: "example.com/a", Name: "a"}
	external := &packages.Package{ID: "example.com/a_test [example.com/a.test]", PkgPath: "example.com/a_test", Name: "a_test"}
	testMain := &packages.Package{ID: "example.com/a.test", PkgPath: "example.com/a.test", Name: "main"}
	other := &packages.Package{ID: "example.com/0", PkgPath: "example.com/0", Name: "zero"}

	selected := selectPackages([]*packages.Package{withTests, testMain, external, plain, other})
	assert.Equal(t, []*packages.Package{other, withTests, external}, selected)

	selected = selectPackages([]*packages.Package{plain, withTests})
	assert.Equal(t, []*packages.Package{withTests}, selected)
}

func TestProgram_Package(t *testing.T) {
	prg := loadProgram(t, testutil.Package{
		Path:  "example.com/users",
		Files: map[string]string{"users.go": usersSource},
	})
	require.NotNil(t, prg.Package("example.com/users"))
	require.NotNil(t, prg.Package(annotations.PackagePath))
	assert.Nil(t, prg.Package("example.com/missing"))
	assert.Same(t, prg.Packages[0].Fset, prg.Fset)
}

func TestNewProgram_Empty(t *testing.T) {
	prg := NewProgram(nil)
	assert.Empty(t, prg.Packages)
	assert.NotNil(t, prg.Fset)
}

func TestRegisterModule(t *testing.T) {
	before := AllRegisteredModules()
	m := &ExternalConfigurationModule{}
	RegisterModule(m)
	t.Cleanup(func() {
		registryLock.Lock()
		registeredModules = before
		registryLock.Unlock()
	})

	mods := AllRegisteredModules()
	require.Len(t, mods, len(before)+1)
	assert.Same(t, m, mods[len(mods)-1])

	// returned slice is a copy
	mods[len(mods)-1] = nil
	assert.Same(t, m, AllRegisteredModules()[len(mods)-1])
}

func TestExternalConfigurationModule(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Project: ProjectContext{Name: "users", ProjectDirectory: dir, Configuration: "Debug"},
		Modules: []Module{&ExternalConfigurationModule{Validate: true}},
	}
	prg := loadProgram(t, testutil.Package{
		Path:  "example.com/users",
		Files: map[string]string{"users.go": usersSource},
	})
	require.NoError(t, cfg.Run(context.Background(), prg))

	data, err := os.ReadFile(filepath.Join(dir, "bin", "Debug", "users.ExternalConfiguration.xml"))
	require.NoError(t, err)
	doc := string(data)
	assert.Contains(t, doc, `<assembly name="users">`)
	assert.Contains(t, doc, `<member name="T:example.com/users.User">`)
	assert.Contains(t, doc, `<member name="M:example.com/users.Find(*string)">`)
	assert.Contains(t, doc, `<argument>name:null =&gt; halt</argument>`)
	assert.Contains(t, doc, `<parameter name="name">`)
	require.NoError(t, sidecar.Validate(bytes.NewReader(data)))
}

func TestExternalConfigurationModule_NoAnnotations(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Project: ProjectContext{Name: "plain", ProjectDirectory: dir, Configuration: "Debug"},
		Modules: []Module{&ExternalConfigurationModule{}},
	}
	prg := loadProgram(t, testutil.Package{
		Path:  "example.com/plain",
		Files: map[string]string{"plain.go": plainSource},
	})
	require.NoError(t, cfg.Run(context.Background(), prg))

	_, err := os.Stat(filepath.Join(dir, "bin"))
	assert.True(t, os.IsNotExist(err))
}

func TestExternalConfigurationModule_ExtractError(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Project: ProjectContext{Name: "bad", ProjectDirectory: dir, Configuration: "Debug"},
		Modules: []Module{&ExternalConfigurationModule{}},
	}
	prg := loadProgram(t, testutil.Package{
		Path: "example.com/bad",
		Files: map[string]string{"bad.go": `package bad

import _ "github.com/jhump/annoxml/annotations"

// @annotations.PublicAPI(nil)
type T int
`},
	})
	err := cfg.Run(context.Background(), prg)
	require.Error(t, err)
	var posErr *extract.ErrorWithPosition
	require.ErrorAs(t, err, &posErr)
	assert.Equal(t, 5, posErr.Pos().Line)

	_, statErr := os.Stat(filepath.Join(dir, "bin"))
	assert.True(t, os.IsNotExist(statErr))
}

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func capturingOutput(files map[string]*bufferCloser) OutputFactory {
	return func(path string) (io.WriteCloser, error) {
		b := &bufferCloser{}
		files[path] = b
		return b, nil
	}
}

func TestRegistryModule(t *testing.T) {
	files := map[string]*bufferCloser{}
	cfg := Config{
		Project:       ProjectContext{Name: "users", ProjectDirectory: testutil.SourceRoot, Configuration: "Debug"},
		Modules:       []Module{&RegistryModule{}},
		OutputFactory: capturingOutput(files),
	}
	prg := loadProgram(t,
		testutil.Package{Path: "example.com/users", Files: map[string]string{"users.go": usersSource}},
		testutil.Package{Path: "example.com/plain", Files: map[string]string{"plain.go": plainSource}},
	)
	require.NoError(t, cfg.Run(context.Background(), prg))

	path := filepath.Join(testutil.SourceRoot, "example.com", "users", "users.annoxml.go")
	require.Len(t, files, 1)
	out, ok := files[path]
	require.True(t, ok, "missing output %s", path)
	assert.True(t, out.closed)

	src := out.String()
	f, err := parser.ParseFile(token.NewFileSet(), path, src, 0)
	require.NoError(t, err)
	assert.Equal(t, "users", f.Name.Name)
	require.Len(t, f.Imports, 1)
	assert.Equal(t, `"github.com/jhump/annoxml"`, f.Imports[0].Path.Value)

	names := regexp.MustCompile(`Name:\s+"([^"]*)"`).FindAllStringSubmatch(src, -1)
	var found []string
	for _, n := range names {
		found = append(found, n[1])
	}
	assert.Equal(t, []string{"T:example.com/users.User", "M:example.com/users.Find(*string)", "name"}, found)
	assert.Contains(t, src, "annoxml.Register(")
	assert.Contains(t, src, `"name:null => halt", "false"`)
}

func TestRegistryFileName(t *testing.T) {
	assert.Equal(t, "users.annoxml.go", registryFileName(&packages.Package{Name: "users"}))
	assert.Equal(t, "users.annoxml_test.go", registryFileName(&packages.Package{Name: "users_test"}))
}

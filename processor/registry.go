package processor

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/jhump/gopoet"
	"golang.org/x/tools/go/packages"

	"github.com/jhump/annoxml"
	"github.com/jhump/annoxml/extract"
)

var (
	annoxmlPkgPath = reflect.TypeOf(annoxml.Member{}).PkgPath()
	annoxmlPkg     = gopoet.NewPackage(annoxmlPkgPath)

	registerFunc  = annoxmlPkg.Symbol("Register")
	memberType    = annoxmlPkg.Symbol("Member")
	attributeType = annoxmlPkg.Symbol("Attribute")
	parameterType = annoxmlPkg.Symbol("Parameter")
)

// RegistryModule makes annotations visible at runtime. For every package
// with annotated members, it generates a file with an init function that
// registers the members with annoxml.Register. The file is named
// "<package>.annoxml.go" (or "<package>.annoxml_test.go" for external test
// packages) and is written to the package's directory.
type RegistryModule struct {
	// Options configure the extractor.
	Options []extract.Option

	members map[string][]annoxml.Member
}

var _ Module = (*RegistryModule)(nil)

// BeforeCompile extracts the annotated members of every package.
func (m *RegistryModule) BeforeCompile(ctx *BeforeCompileContext) error {
	members, err := collectMembers(&ctx.compileContext, m.Options)
	if err != nil {
		return err
	}
	m.members = map[string][]annoxml.Member{}
	for _, mem := range members {
		m.members[mem.Package] = append(m.members[mem.Package], mem)
	}
	return nil
}

// AfterCompile generates the registration files.
func (m *RegistryModule) AfterCompile(ctx *AfterCompileContext) error {
	for _, pkg := range ctx.Program.Packages {
		members := m.members[pkg.PkgPath]
		if len(members) == 0 {
			continue
		}
		if pkg.PkgPath == annoxmlPkgPath {
			ctx.Logger.Warn("cannot generate registrations for package that declares the registry", "package", pkg.PkgPath)
			continue
		}
		if len(pkg.GoFiles) == 0 {
			return fmt.Errorf("cannot determine directory of package %s", pkg.PkgPath)
		}
		file := generateRegistryFile(pkg, members)
		path := filepath.Join(filepath.Dir(pkg.GoFiles[0]), file.Name)
		if err := writeGoFile(ctx.Output, path, file); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		ctx.Logger.Info("wrote registrations", "path", path, "members", len(members))
	}
	return nil
}

func registryFileName(pkg *packages.Package) string {
	if strings.HasSuffix(pkg.Name, "_test") {
		return fmt.Sprintf("%s.annoxml_test.go", strings.TrimSuffix(pkg.Name, "_test"))
	}
	return fmt.Sprintf("%s.annoxml.go", pkg.Name)
}

func generateRegistryFile(pkg *packages.Package, members []annoxml.Member) *gopoet.GoFile {
	file := gopoet.NewGoFile(registryFileName(pkg), pkg.PkgPath, pkg.Name)
	initFunc := gopoet.NewFunc("init")
	for i, mem := range members {
		if i != 0 {
			initFunc.Println("")
		}
		initFunc.Printlnf("%s(%s{", registerFunc, memberType)
		initFunc.Printlnf("Name: %q,", mem.Name)
		if len(mem.Attributes) > 0 {
			initFunc.Printlnf("Attributes: []%s{", attributeType)
			generateAttributes(&initFunc.CodeBlock, mem.Attributes)
			initFunc.Println("},")
		}
		if len(mem.Parameters) > 0 {
			initFunc.Printlnf("Parameters: []%s{", parameterType)
			for _, p := range mem.Parameters {
				initFunc.Printlnf("{Name: %q, Attributes: []%s{", p.Name, attributeType)
				generateAttributes(&initFunc.CodeBlock, p.Attributes)
				initFunc.Println("}},")
			}
			initFunc.Println("},")
		}
		initFunc.Println("})")
	}
	file.AddElement(initFunc)
	return file
}

func generateAttributes(out *gopoet.CodeBlock, attrs []annoxml.Attribute) {
	for _, a := range attrs {
		if len(a.Arguments) == 0 {
			out.Printlnf("{Constructor: %q},", a.Constructor)
			continue
		}
		out.Printf("{Constructor: %q, Arguments: []string{", a.Constructor)
		for i, arg := range a.Arguments {
			if i != 0 {
				out.Print(", ")
			}
			out.Printf("%q", arg)
		}
		out.Println("}},")
	}
}

func writeGoFile(output OutputFactory, path string, file *gopoet.GoFile) (err error) {
	out, err := output(path)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := out.Close()
		if err == nil {
			err = closeErr
		}
	}()
	return gopoet.WriteGoFile(out, file)
}

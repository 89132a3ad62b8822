package processor

import (
	"github.com/jhump/annoxml"
	"github.com/jhump/annoxml/extract"
	"github.com/jhump/annoxml/sidecar"
)

// ExternalConfigurationModule writes the annotations of a program to its
// external configuration file,
// <project-directory>/bin/<configuration>/<name>.ExternalConfiguration.xml.
// No file (or directory) is created if the program has no recognized
// annotations.
type ExternalConfigurationModule struct {
	// Options configure the extractor, e.g. to recognize a different
	// namespace or to exclude files.
	Options []extract.Option
	// Validate checks the written file against the document schema.
	Validate bool
}

var _ Module = (*ExternalConfigurationModule)(nil)

// BeforeCompile extracts the annotations and writes the file.
func (m *ExternalConfigurationModule) BeforeCompile(ctx *BeforeCompileContext) error {
	members, err := collectMembers(&ctx.compileContext, m.Options)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		ctx.Logger.Info("no annotated members found; skipping external configuration", "project", ctx.Project.Name)
		return nil
	}

	path := sidecar.OutputPath(ctx.Project.ProjectDirectory, ctx.Project.Configuration, ctx.Project.Name)
	assembly := annoxml.Assembly{Name: ctx.Project.Name, Members: members}
	if err := sidecar.WriteFile(path, assembly); err != nil {
		return err
	}
	if m.Validate {
		if err := sidecar.ValidateFile(path); err != nil {
			return err
		}
	}
	ctx.Logger.Info("wrote external configuration", "path", path, "members", len(members))
	return nil
}

// AfterCompile does nothing.
func (m *ExternalConfigurationModule) AfterCompile(*AfterCompileContext) error {
	return nil
}

func collectMembers(ctx *compileContext, opts []extract.Option) ([]annoxml.Member, error) {
	all := make([]extract.Option, 0, len(opts)+2)
	all = append(all, extract.WithLogger(ctx.Logger), extract.WithBaseDir(ctx.Project.ProjectDirectory))
	all = append(all, opts...)
	x, err := extract.New(ctx.Program.Packages, all...)
	if err != nil {
		return nil, err
	}
	return x.Collect()
}

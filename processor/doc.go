// Package processor hosts compile modules: components that are given a
// loaded and type-checked program before and after compilation.
//
// This package defines an interface, Module, which is implemented by things
// that process a program.
//
//    BeforeCompile(ctx *BeforeCompileContext) error
//    AfterCompile(ctx *AfterCompileContext) error
//
// If a module returns an error, processing has failed and the error should
// indicate why. Errors that relate to source code should carry positions (see
// extract.ErrorWithPosition) to aid users in resolving them.
//
// Two modules are provided. ExternalConfigurationModule writes the program's
// annotations to <project-directory>/bin/<configuration>/<name>.ExternalConfiguration.xml.
// RegistryModule generates Go sources that register the annotations at
// runtime so they can be queried with annoxml.Lookup.
//
// Module Registration
//
// Module implementations can be registered with this package using the
// RegisterModule function. All registered modules can later be queried with
// the AllRegisteredModules function. These can be used to create command-line
// tools that run custom modules in addition to the default ones.
//
// Module Invocation
//
// Key among the types used to invoke modules is processor.Config. This struct
// defines the packages that will be loaded, the project being compiled, the
// modules that will be invoked, and the output factory (which controls where
// generated files are actually written).
//
// After a processor.Config is constructed, its Execute method loads the
// packages (parsing and type-checking them) and then invokes BeforeCompile on
// every module, in order, followed by AfterCompile on every module. A program
// that has already been loaded can be passed directly to the Run method.
package processor

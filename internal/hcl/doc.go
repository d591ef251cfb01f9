// Package hcl provides the concrete HCL implementation of config.Loader.
// It is responsible for file discovery, parsing, expression evaluation and
// the translation of `application_django` blocks into the config model.
package hcl

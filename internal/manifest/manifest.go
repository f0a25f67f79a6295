package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/opgraph/internal/ir"
)

// Manifest is a compiled build manifest.
type Manifest struct {
	Access     Access
	Operations []Operation
	WriteFiles []WriteFile
	Shared     ir.Table
	FileCount  int
}

// Access lists sandbox prefixes the manifest adds to the configured ones.
type Access struct {
	Read  []string
	Write []string
}

// Operation is one "operation" declaration.
type Operation struct {
	Name             string
	Title            string
	Executable       string
	Arguments        string
	WorkingDirectory string
	Inputs           []string
	Outputs          []string
	Pos              token.Pos
}

// WriteFile is one "writeFile" declaration.
type WriteFile struct {
	Name             string
	WorkingDirectory string
	Path             string
	Content          string
	Pos              token.Pos
}

// Load compiles the CUE package in dir. active is unified into the
// top-level "state" field first; nil or empty leaves it untouched.
func Load(dir string, active ir.Table) (*Manifest, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &CompileError{Field: "manifest", Message: fmt.Sprintf("cannot access manifest directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &CompileError{Field: "manifest", Message: "not a directory: " + dir}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &CompileError{Field: "manifest", Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &CompileError{Field: "manifest", Message: "no CUE files found in " + dir}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &CompileError{Field: "manifest", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError("manifest", inst.Err)
	}

	m, err := Compile(ctx.BuildInstance(inst), active)
	if err != nil {
		return nil, err
	}
	m.FileCount = len(cueFiles)
	return m, nil
}

// CompileString compiles manifest source held in memory. filename is used
// in error positions.
func CompileString(src, filename string, active ir.Table) (*Manifest, error) {
	ctx := cuecontext.New()
	m, err := Compile(ctx.CompileString(src, cue.Filename(filename)), active)
	if err != nil {
		return nil, err
	}
	m.FileCount = 1
	return m, nil
}

// Compile extracts declarations from a built CUE value.
func Compile(v cue.Value, active ir.Table) (*Manifest, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("manifest", err)
	}

	if len(active) > 0 {
		v = v.FillPath(cue.ParsePath("state"), toGo(active))
		if err := v.Err(); err != nil {
			return nil, formatCUEError("state", err)
		}
	}

	m := &Manifest{Shared: ir.NewTable()}
	var err error

	if m.Access.Read, err = optionalStrings(v, "access.read"); err != nil {
		return nil, err
	}
	if m.Access.Write, err = optionalStrings(v, "access.write"); err != nil {
		return nil, err
	}

	if err := eachField(v, "writeFile", func(name string, fv cue.Value) error {
		w, err := compileWriteFile(name, fv)
		if err != nil {
			return err
		}
		m.WriteFiles = append(m.WriteFiles, *w)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := eachField(v, "operation", func(name string, fv cue.Value) error {
		op, err := compileOperation(name, fv)
		if err != nil {
			return err
		}
		m.Operations = append(m.Operations, *op)
		return nil
	}); err != nil {
		return nil, err
	}

	if sv := v.LookupPath(cue.ParsePath("shared")); sv.Exists() {
		shared, err := toValue("shared", sv)
		if err != nil {
			return nil, err
		}
		table, ok := ir.AsTable(shared)
		if !ok {
			return nil, &CompileError{Field: "shared", Message: "must be a struct", Pos: sv.Pos()}
		}
		m.Shared = table
	}

	return m, nil
}

// eachField calls fn for every regular field of the struct at path, in
// declaration order. A missing struct is not an error.
func eachField(v cue.Value, path string, fn func(name string, fv cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return formatCUEError(path, err)
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func compileOperation(name string, v cue.Value) (*Operation, error) {
	field := "operation." + name
	op := &Operation{Name: name, Pos: v.Pos()}
	var err error

	if op.Executable, err = requiredString(v, field, "executable"); err != nil {
		return nil, err
	}
	if op.WorkingDirectory, err = requiredString(v, field, "workingDirectory"); err != nil {
		return nil, err
	}
	if op.Title, err = optionalString(v, field, "title", name); err != nil {
		return nil, err
	}
	if op.Arguments, err = optionalString(v, field, "arguments", ""); err != nil {
		return nil, err
	}
	if op.Inputs, err = optionalStrings(v, "inputs"); err != nil {
		return nil, prefix(field, err)
	}
	if op.Outputs, err = optionalStrings(v, "outputs"); err != nil {
		return nil, prefix(field, err)
	}
	return op, nil
}

func compileWriteFile(name string, v cue.Value) (*WriteFile, error) {
	field := "writeFile." + name
	w := &WriteFile{Name: name, Pos: v.Pos()}
	var err error

	if w.WorkingDirectory, err = requiredString(v, field, "workingDirectory"); err != nil {
		return nil, err
	}
	if w.Path, err = requiredString(v, field, "path"); err != nil {
		return nil, err
	}
	if w.Content, err = requiredString(v, field, "content"); err != nil {
		return nil, err
	}
	return w, nil
}

func requiredString(v cue.Value, field, key string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(key))
	if !fv.Exists() {
		return "", &CompileError{Field: field + "." + key, Message: key + " is required", Pos: v.Pos()}
	}
	s, err := stringOf(fv)
	if err != nil {
		return "", formatCUEError(field+"."+key, err)
	}
	if s == "" {
		return "", &CompileError{Field: field + "." + key, Message: key + " must not be empty", Pos: fv.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, field, key, fallback string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(key))
	if !fv.Exists() {
		return fallback, nil
	}
	s, err := stringOf(fv)
	if err != nil {
		return "", formatCUEError(field+"."+key, err)
	}
	return s, nil
}

func optionalStrings(v cue.Value, path string) ([]string, error) {
	lv := v.LookupPath(cue.ParsePath(path))
	if !lv.Exists() {
		return nil, nil
	}
	if d, ok := lv.Default(); ok {
		lv = d
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(path, err)
	}
	var out []string
	for iter.Next() {
		s, err := stringOf(iter.Value())
		if err != nil {
			return nil, formatCUEError(path, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func stringOf(v cue.Value) (string, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	return v.String()
}

func prefix(field string, err error) error {
	if ce, ok := err.(*CompileError); ok {
		ce.Field = field + "." + ce.Field
		return ce
	}
	return err
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

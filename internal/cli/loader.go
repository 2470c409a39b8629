package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/OrionReed/ggraph/internal/compiler"
)

// LoadResult contains the boards compiled from a file or directory.
type LoadResult struct {
	Boards    []*compiler.BoardSpec
	FileCount int
}

// LoadError represents an error that occurred while loading boards.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants, shared by every command.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeSelect      = "E008" // Board name does not resolve
	ErrCodeDatabase    = "E009" // Database open/read/write error

	ErrCodeInvalidBoard = "E201" // Board shape rejected by the compiler
	ErrCodeEvaluation   = "E202" // Engine rejected the request
)

// LoadBoards compiles every board declared in path. A directory is loaded
// as one CUE instance; a file is compiled on its own.
func LoadBoards(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
		}
		specs, err := compiler.CompileSource(data, path)
		if err != nil {
			return nil, convertCompileError(err)
		}
		return &LoadResult{Boards: specs, FileCount: 1}, nil
	}

	cueFiles, err := FindCUEFiles(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	specs, err := compiler.CompileValue(value)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &LoadResult{Boards: specs, FileCount: len(cueFiles)}, nil
}

// LoadBoard loads path and picks one board from it by name.
func LoadBoard(path, name string) (*compiler.BoardSpec, error) {
	result, err := LoadBoards(path)
	if err != nil {
		return nil, err
	}
	spec, err := compiler.SelectBoard(result.Boards, name)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeSelect, Message: err.Error()}
	}
	return spec, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError maps a compiler error to a LoadError with position
// info. CUE syntax and unification failures are build failures; everything
// else is a board the compiler rejected.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := ErrCodeInvalidBoard
		if compileErr.Field == "cue" {
			code = ErrCodeBuildFailed
		}
		return &LoadError{
			Code:    code,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
}

// loadErrorCode returns the code of a LoadError, or the generic code.
func loadErrorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

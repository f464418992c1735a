package transfer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	bareRepositorySuffixConstant          = ".git"
	workspaceDirectoryPermissionConstant  = 0o755
	rootMissingMessageConstant            = "repositories root not configured"
	projectNameInvalidTemplateConstant    = "invalid project name %q"
	workspacePrepareErrorTemplateConstant = "prepare workspace %s: %w"
)

// ErrRepositoriesRootMissing indicates an empty repositories root.
var ErrRepositoriesRootMissing = errors.New(rootMissingMessageConstant)

// Workspace owns the local bare clone of one project.
type Workspace struct {
	root        string
	projectName string
}

// AcquireWorkspace prepares <root>/<projectName>.git, removing any leftover from an earlier run.
func AcquireWorkspace(root string, projectName string) (*Workspace, error) {
	trimmedRoot := strings.TrimSpace(root)
	if len(trimmedRoot) == 0 {
		return nil, ErrRepositoriesRootMissing
	}
	trimmedName := strings.TrimSpace(projectName)
	if len(trimmedName) == 0 || trimmedName != filepath.Base(trimmedName) || trimmedName == "." || trimmedName == ".." {
		return nil, fmt.Errorf(projectNameInvalidTemplateConstant, projectName)
	}

	workspace := &Workspace{root: filepath.Clean(trimmedRoot), projectName: trimmedName}
	if mkdirError := os.MkdirAll(workspace.root, workspaceDirectoryPermissionConstant); mkdirError != nil {
		return nil, fmt.Errorf(workspacePrepareErrorTemplateConstant, workspace.root, mkdirError)
	}
	if removeError := os.RemoveAll(workspace.Path()); removeError != nil {
		return nil, fmt.Errorf(workspacePrepareErrorTemplateConstant, workspace.Path(), removeError)
	}
	return workspace, nil
}

// Root is the directory clones are created in.
func (workspace *Workspace) Root() string {
	return workspace.root
}

// DirectoryName is the bare clone directory name relative to Root.
func (workspace *Workspace) DirectoryName() string {
	return workspace.projectName + bareRepositorySuffixConstant
}

// Path is the absolute location of the bare clone.
func (workspace *Workspace) Path() string {
	return filepath.Join(workspace.root, workspace.DirectoryName())
}

// Release removes the bare clone. Missing directories are not an error.
func (workspace *Workspace) Release() error {
	return os.RemoveAll(workspace.Path())
}

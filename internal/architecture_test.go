package internal_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestScriptCoreImportRestrictions keeps the script machine free of world
// and engine packages
func TestScriptCoreImportRestrictions(t *testing.T) {
	allowedPrefixes := []string{
		"regoth/internal/daedalus", // its own subpackages
		"regoth/internal/errs",
		"regoth/internal/log",
	}

	checkImports(t, "./daedalus", allowedPrefixes, nil)
}

// TestDemoImportRestrictions ensures the demo scripts only talk to the machine
func TestDemoImportRestrictions(t *testing.T) {
	forbiddenPrefixes := []string{
		"regoth/internal/world", // world tests import demo
		"regoth/internal/ai",
		"regoth/internal/savegame",
		"regoth/internal/cli",
	}

	checkImports(t, "./demo", nil, forbiddenPrefixes)
}

// TestEngineImportRestrictions ensures the simulation never reaches up into
// storage or the command line
func TestEngineImportRestrictions(t *testing.T) {
	forbiddenPrefixes := []string{
		"regoth/internal/savegame",
		"regoth/internal/cli",
		"regoth/internal/demo",
	}

	for _, dir := range []string{"./world", "./ai", "./events", "./pathfinder", "./physics", "./waynet", "./geom"} {
		checkImports(t, dir, nil, forbiddenPrefixes)
	}
}

// TestSavegameImportRestrictions ensures storage doesn't import the command line
func TestSavegameImportRestrictions(t *testing.T) {
	checkImports(t, "./savegame", nil, []string{"regoth/internal/cli"})
}

func checkImports(t *testing.T, packageDir string, allowedPrefixes, forbiddenPrefixes []string) {
	err := filepath.Walk(packageDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		fset := token.NewFileSet()
		node, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			t.Errorf("Failed to parse %s: %v", path, err)
			return nil
		}

		for _, imp := range node.Imports {
			importPath := strings.Trim(imp.Path.Value, `"`)

			// standard library and third-party imports are not restricted
			if !strings.HasPrefix(importPath, "regoth/internal") {
				continue
			}

			for _, forbidden := range forbiddenPrefixes {
				if strings.HasPrefix(importPath, forbidden) {
					t.Errorf("FORBIDDEN import in %s: %s", path, importPath)
				}
			}

			if len(allowedPrefixes) > 0 {
				allowed := false
				for _, prefix := range allowedPrefixes {
					if strings.HasPrefix(importPath, prefix) {
						allowed = true
						break
					}
				}
				if !allowed {
					t.Errorf("DISALLOWED import in %s: %s (not in allowed list)", path, importPath)
				}
			}
		}

		return nil
	})

	if err != nil {
		t.Errorf("Failed to walk directory %s: %v", packageDir, err)
	}
}

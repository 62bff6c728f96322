//go:build mage

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

const (
	shaderDir    = "assets/shaders"
	shaderOutDir = "assets/shaders/bin"
	binary       = "bin/vks"
)

type Build mg.Namespace

// Compiles every GLSL source under assets/shaders to SPIR-V.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and builds the sandbox binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", binary, "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Removes compiled shaders, the binary and rotated logs.
func Clean() error {
	for _, path := range []string{shaderOutDir, "bin", "vks.log", "vks.log.1"} {
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	}
	return nil
}

func buildShaders() error {
	if err := os.MkdirAll(shaderOutDir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(shaderDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !isShaderSource(e.Name()) {
			continue
		}
		src := filepath.Join(shaderDir, e.Name())
		out := filepath.Join(shaderOutDir, e.Name()+".spv")
		if _, err := executeCmd("glslc", withArgs("-std=450", "-g", src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

func isShaderSource(name string) bool {
	for _, ext := range []string{".vert", ".frag", ".comp"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

package main

import (
	"bpsdk-setup/cmd" // CLI commands and execution
)

// main delegates to cmd.Execute.
//
// bpsdk-setup installs the BetterPortal UI SDK into a BSB plugin project:
//   - checks the project's package.json opts in with "bsb_project": true
//   - installs (or force reinstalls) the SDK plugin with npm
//   - copies the plugin's vendored UI into ./betterportal-ui, keeping the
//     UI package.json's identity, build script and added dependencies
//   - adds the UI scripts and files pattern to the root package.json
//   - appends the UI build outputs to .gitignore
//   - runs the final dependency install
//
// It normally runs from an npm script, where $INIT_CWD names the project.
func main() {
	cmd.Execute()
}

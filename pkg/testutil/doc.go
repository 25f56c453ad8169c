// Package testutil provides utilities for testing heimdal commands.
//
// Key components:
//   - TestEnvironment: temp dotfiles and heimdal home dirs, a fixed clock,
//     a fake machine identity and an in-memory remote
//   - Clone: a second machine sharing the same remote
//   - AssertErrorCode: checks the HeimdalError code of an error
//
// Every environment lives under t.TempDir and is removed with the test.
package testutil

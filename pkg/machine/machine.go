// Package machine identifies the host heimdal runs on.
package machine

import (
	"bufio"
	"crypto/sha256"
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strings"

	"github.com/limistah/heimdal/pkg/errors"
)

// IDPrefix starts every machine id.
const IDPrefix = "machine-"

// Info describes the current machine and process.
type Info struct {
	ID        string
	Hostname  string
	OS        string
	OSVersion string
	Arch      string
	User      string
	PID       int
}

// Provider returns the identity of the running machine. Tests substitute
// their own.
type Provider func() (Info, error)

// osReleasePath is swapped in tests.
var osReleasePath = "/etc/os-release"

// Current inspects the running host.
func Current() (Info, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Info{}, errors.Wrap(err, errors.ErrInternal, "cannot determine hostname")
	}

	return Info{
		ID:        ID(hostname, currentUser()),
		Hostname:  hostname,
		OS:        runtime.GOOS,
		OSVersion: osVersion(),
		Arch:      runtime.GOARCH,
		User:      currentUser(),
		PID:       os.Getpid(),
	}, nil
}

// Static returns a Provider that always yields info.
func Static(info Info) Provider {
	return func() (Info, error) { return info, nil }
}

// ID derives a stable machine id from hostname and user name.
func ID(hostname, userName string) string {
	sum := sha256.Sum256([]byte(hostname + "\x00" + userName))
	return fmt.Sprintf("%s%x", IDPrefix, sum[:8])
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	for _, env := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return "unknown"
}

func osVersion() string {
	if runtime.GOOS != "linux" {
		return "unknown"
	}
	f, err := os.Open(osReleasePath)
	if err != nil {
		return "unknown"
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if v, ok := strings.CutPrefix(scanner.Text(), "VERSION_ID="); ok {
			return strings.Trim(v, `"`)
		}
	}
	return "unknown"
}

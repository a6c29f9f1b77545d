package workspace

import (
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"whittle/internal/services"
)

// NormalizeOutputRoot prepares an output root for handing to the engine.
// Local paths pass through untouched. UNC-style network paths using a raw IP
// host are rewritten to the host's name, and read/write access on the
// normalized path is verified; either failure aborts job startup because the
// engine does not tolerate IP-form UNC paths.
func NormalizeOutputRoot(root string) (string, error) {
	host, rest, ok := splitUNC(root)
	if !ok {
		return root, nil
	}

	if ip := net.ParseIP(host); ip != nil {
		names, err := net.LookupAddr(host)
		if err != nil || len(names) == 0 {
			return "", services.Wrap(services.ErrPathAccess, "workspace", "normalize path",
				fmt.Sprintf("cannot resolve a hostname for network path host %s", host), err)
		}
		host = strings.TrimSuffix(names[0], ".")
	}

	sep := string(root[0])
	normalized := sep + sep + host + sep + rest
	if err := checkReadWrite(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// splitUNC breaks a //host/share or \\host\share path into host and
// remainder. Returns ok=false for local paths.
func splitUNC(path string) (host, rest string, ok bool) {
	var sep string
	switch {
	case strings.HasPrefix(path, `\\`):
		sep = `\`
	case strings.HasPrefix(path, "//"):
		sep = "/"
	default:
		return "", "", false
	}

	trimmed := path[2:]
	idx := strings.Index(trimmed, sep)
	if idx <= 0 {
		return "", "", false
	}
	return trimmed[:idx], trimmed[idx+1:], true
}

func checkReadWrite(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrPathAccess, "workspace", "verify path", path, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrPathAccess, "workspace", "verify path",
			fmt.Sprintf("%s is not a directory", path), nil)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return services.Wrap(services.ErrPathAccess, "workspace", "verify path",
			fmt.Sprintf("insufficient permissions on %s", path), err)
	}
	return nil
}

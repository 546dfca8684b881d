package auth

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
)

// OpenBrowser launches the default browser on the authorization URL. The
// handshake itself is externally driven; failures here are non-fatal because
// the URL is also printed for manual use.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if cmd == nil {
		return errors.New("no browser command available")
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

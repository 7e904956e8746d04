package main

import (
	"os/exec"
	"runtime"
)

// openBrowser opens url with the platform's default handler. LoginWithBrowser
// prints the URL when this fails.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	go cmd.Wait() //nolint:errcheck // reap the child

	return nil
}

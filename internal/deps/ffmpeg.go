package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// CheckFFmpeg reports the FFmpeg binary audio decoding will execute. An
// explicit path must point at an executable file; a bare name is resolved
// from PATH.
func CheckFFmpeg(command string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Required to decode audio",
	}
	command = strings.TrimSpace(command)
	if command == "" {
		command = "ffmpeg"
	}
	result.Command = command

	if strings.ContainsRune(command, os.PathSeparator) {
		info, err := os.Stat(command)
		if err != nil || !isExecutable(info) {
			result.Detail = fmt.Sprintf("binary %q is not executable", command)
			return result
		}
		result.Available = true
		return result
	}

	resolved, err := exec.LookPath(command)
	if err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", command)
		return result
	}
	result.Command = resolved
	result.Available = true
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// Package procrunner launches external programs (bazel, in practice) and
// captures their output. Ground rule: stdout must be drained to EOF before
// the process is waited on, since a child that writes more to stdout than
// the pipe buffer holds will block forever if nothing is reading it while
// we're blocked in Wait.
package procrunner

import (
	"bytes"
	"io"
	"os/exec"

	"github.com/sean7218/bazel-sourcekit-bsp/server/util/status"
)

// Result holds the captured output of a completed (or failed-to-start)
// process invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Run launches executable with args in cwd, via exec.LookPath-style
// resolution (exec.Command already honors PATH), and returns its captured
// stdout/stderr and exit code. A failure to start the process yields a
// Result with ExitCode -1 and a non-nil error; the error message is also
// mirrored into Stderr so callers that only log Result.Stderr still see it.
func Run(executable, cwd string, args []string) (*Result, error) {
	cmd := exec.Command(executable, args...)
	cmd.Dir = cwd

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return &Result{ExitCode: -1, Stderr: []byte(err.Error())}, status.BazelErrorf("failed to create stdout pipe: %s", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return &Result{ExitCode: -1, Stderr: []byte(err.Error())}, status.BazelErrorf("failed to create stderr pipe: %s", err)
	}

	if err := cmd.Start(); err != nil {
		return &Result{ExitCode: -1, Stderr: []byte(err.Error())}, status.BazelErrorf("failed to start %s: %s", executable, err)
	}

	// Both pipes must be drained to EOF before Wait() is called: Wait()
	// closes the parent's read end of each pipe as soon as the process
	// exits, so reading either pipe afterward fails. Stderr is drained
	// concurrently with stdout so a child that fills the stderr pipe buffer
	// while we're still reading stdout can't deadlock either side.
	var stdoutBuf, stderrBuf bytes.Buffer
	stderrDone := make(chan error, 1)
	go func() {
		_, copyErr := io.Copy(&stderrBuf, stderrPipe)
		stderrDone <- copyErr
	}()

	_, stdoutErr := io.Copy(&stdoutBuf, stdoutPipe)
	stderrErr := <-stderrDone

	if stdoutErr != nil && stdoutErr != io.EOF {
		_ = cmd.Wait()
		return &Result{ExitCode: -1, Stderr: []byte(stdoutErr.Error())}, status.BazelErrorf("failed to read stdout from %s: %s", executable, stdoutErr)
	}
	if stderrErr != nil && stderrErr != io.EOF {
		_ = cmd.Wait()
		return &Result{ExitCode: -1, Stderr: []byte(stderrErr.Error())}, status.BazelErrorf("failed to read stderr from %s: %s", executable, stderrErr)
	}

	waitErr := cmd.Wait()

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return &Result{ExitCode: -1, Stdout: stdoutBuf.Bytes(), Stderr: stderrBuf.Bytes()}, status.BazelErrorf("failed to run %s: %s", executable, waitErr)
		}
	}

	return &Result{
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.Bytes(),
		ExitCode: exitCode,
	}, nil
}

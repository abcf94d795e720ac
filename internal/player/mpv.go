// Package player launches mpv and controls it over its JSON IPC socket.
// The MPV handle satisfies the session's playback-engine interface; all
// control calls degrade to no-ops when the IPC connection is gone, so a
// session holding a dead handle stays consistent.
package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"oriontv/internal/logging"
)

// MPV is a running mpv process plus its IPC connection.
// Uses exec.Command with explicit args (no shell interpretation)
// and IPC via Unix socket at a randomized temp path.
type MPV struct {
	cmd       *exec.Cmd
	conn      net.Conn
	socketDir string
	log       zerolog.Logger

	writeCh chan []byte
	done    chan struct{}
	reqID   atomic.Int64
}

// Available checks if the mpv binary exists in PATH.
func Available() bool {
	_, err := exec.LookPath("mpv")
	return err == nil
}

// Start launches mpv on url and connects to its IPC socket.
func Start(url, title string, startSec float64) (*MPV, error) {
	socketDir, err := os.MkdirTemp("", "oriontv-mpv-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir for mpv socket: %w", err)
	}
	socketPath := filepath.Join(socketDir, "socket")

	args := []string{
		url,
		"--force-media-title=" + title,
		"--input-ipc-server=" + socketPath,
		"--really-quiet",
	}
	if startSec > 0 {
		args = append(args, fmt.Sprintf("--start=+%.0f", startSec))
	}

	cmd := exec.Command("mpv", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		os.RemoveAll(socketDir)
		return nil, fmt.Errorf("starting mpv: %w", err)
	}

	conn, err := dialSocket(socketPath)
	if err != nil {
		_ = cmd.Process.Kill()
		os.RemoveAll(socketDir)
		return nil, fmt.Errorf("connecting to mpv IPC: %w", err)
	}

	m := &MPV{
		cmd:       cmd,
		conn:      conn,
		socketDir: socketDir,
		log:       logging.Component("mpv"),
		writeCh:   make(chan []byte, 16),
		done:      make(chan struct{}),
	}
	go m.writeLoop()
	return m, nil
}

// dialSocket waits for mpv to create its IPC socket.
func dialSocket(path string) (net.Conn, error) {
	for i := 0; i < 50; i++ {
		if _, err := os.Stat(path); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	return net.Dial("unix", path)
}

// writeLoop serializes IPC writes; control calls never block playback.
func (m *MPV) writeLoop() {
	for {
		select {
		case data := <-m.writeCh:
			if _, err := m.conn.Write(data); err != nil {
				m.log.Debug().Err(err).Msg("mpv IPC write failed")
				return
			}
		case <-m.done:
			return
		}
	}
}

// send queues one IPC command.
func (m *MPV) send(args ...any) {
	cmd := map[string]any{
		"command":    args,
		"request_id": m.reqID.Add(1),
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return
	}
	data = append(data, '\n')
	select {
	case <-m.done:
	case m.writeCh <- data:
	default:
		m.log.Debug().Msg("mpv IPC queue full, dropping command")
	}
}

// Pause pauses playback.
func (m *MPV) Pause() { m.send("set_property", "pause", true) }

// Resume resumes playback.
func (m *MPV) Resume() { m.send("set_property", "pause", false) }

// Seek jumps to an absolute position in seconds.
func (m *MPV) Seek(seconds float64) { m.send("seek", seconds, "absolute") }

// Quit asks mpv to exit; Wait returns once it has.
func (m *MPV) Quit() { m.send("quit") }

// Observe reads IPC events until mpv exits, reporting playback progress
// in milliseconds. onEnd fires when the current file finishes.
func (m *MPV) Observe(onProgress func(positionMillis, durationMillis int64), onEnd func()) {
	m.send("observe_property", 1, "time-pos")
	m.send("observe_property", 2, "duration")

	var durationMillis int64
	scanner := bufio.NewScanner(m.conn)
	for scanner.Scan() {
		var event struct {
			Event string  `json:"event"`
			Name  string  `json:"name"`
			Data  float64 `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		switch {
		case event.Event == "end-file":
			if onEnd != nil {
				onEnd()
			}
		case event.Name == "duration" && event.Data > 0:
			durationMillis = int64(event.Data * 1000)
		case event.Name == "time-pos" && event.Data >= 0 && durationMillis > 0:
			if onProgress != nil {
				onProgress(int64(event.Data*1000), durationMillis)
			}
		}
	}
}

// Wait blocks until mpv exits and releases the IPC resources.
func (m *MPV) Wait() error {
	err := m.cmd.Wait()
	close(m.done)
	m.conn.Close()
	os.RemoveAll(m.socketDir)

	// mpv returns non-zero on user quit, which is normal.
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 4 {
		return nil
	}
	return err
}

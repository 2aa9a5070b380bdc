package bus

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestPidManagerBasics(t *testing.T) {
	pm := &pidManager{path: filepath.Join(t.TempDir(), PidName)}

	t.Run("create and remove PID file", func(t *testing.T) {
		if err := pm.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		pidData, err := os.ReadFile(pm.path)
		if err != nil {
			t.Fatalf("failed to read PID file: %v", err)
		}
		if want := strconv.Itoa(os.Getpid()); string(pidData) != want {
			t.Errorf("PID file contains %q, expected %q", string(pidData), want)
		}

		if err := pm.remove(); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if _, err := os.Stat(pm.path); !os.IsNotExist(err) {
			t.Error("PID file should not exist after removal")
		}
	})

	t.Run("checkExisting with no PID file", func(t *testing.T) {
		if err := pm.checkExisting(); err != nil {
			t.Errorf("checkExisting should not error when no PID file exists: %v", err)
		}
	})

	t.Run("checkExisting with current process", func(t *testing.T) {
		if err := pm.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		defer pm.remove()

		if err := pm.checkExisting(); err == nil {
			t.Error("checkExisting should fail when process is running")
		}
	})

	tests := []struct {
		name    string
		content string
	}{
		{"stale PID file", "99999999"},
		{"invalid PID file", "invalid"},
	}
	for _, tt := range tests {
		t.Run("checkExisting with "+tt.name, func(t *testing.T) {
			if err := os.WriteFile(pm.path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("failed to write PID file: %v", err)
			}
			if err := pm.checkExisting(); err != nil {
				t.Errorf("checkExisting should succeed: %v", err)
			}
			if _, err := os.Stat(pm.path); !os.IsNotExist(err) {
				t.Error("PID file should be removed")
			}
		})
	}
}

func TestIsProcessAlive(t *testing.T) {
	pm := &pidManager{}

	if !pm.isProcessAlive(os.Getpid()) {
		t.Error("current process should be alive")
	}
	if pm.isProcessAlive(99999999) {
		t.Error("non-existent process should not be alive")
	}
	if pm.isProcessAlive(0) || pm.isProcessAlive(-1) {
		t.Error("non-positive pids are never alive")
	}
}

func TestSocketManager_DialWithoutListener(t *testing.T) {
	sm := &socketManager{path: filepath.Join(t.TempDir(), SockName)}
	if _, err := sm.dial(); err == nil {
		t.Error("dial should fail when no listener exists")
	}
}

func TestSocketManager_Send(t *testing.T) {
	sm := &socketManager{path: filepath.Join(t.TempDir(), SockName)}

	ln, err := sm.listen()
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()

				buf := make([]byte, 2)
				if n, err := c.Read(buf); err != nil || n != 2 {
					return
				}
				switch buf[0] {
				case 'r':
					fmt.Fprint(c, "OK realtime started\n")
				case 's':
					fmt.Fprint(c, "STATUS ready=true realtime=idle file=idle record=idle\n")
				case 'v':
					fmt.Fprintf(c, "STATUS proto=%s\n", ProtoVer)
				default:
					fmt.Fprintf(c, "ERR unknown=%q\n", buf[0])
				}
			}(conn)
		}
	}()

	tests := []struct {
		cmd  byte
		want string
	}{
		{'r', "OK realtime started\n"},
		{'s', "STATUS ready=true realtime=idle file=idle record=idle\n"},
		{'v', fmt.Sprintf("STATUS proto=%s\n", ProtoVer)},
		{'x', "ERR unknown='x'\n"},
	}

	for _, tt := range tests {
		got, err := sm.send(tt.cmd)
		if err != nil {
			t.Errorf("send %c: %v", tt.cmd, err)
			continue
		}
		if got != tt.want {
			t.Errorf("send %c: got %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestListenRemovesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), SockName)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	ln, err := (&socketManager{path: path}).listen()
	if err != nil {
		t.Fatalf("listen over stale socket: %v", err)
	}
	ln.Close()
}

func TestPathFunctions(t *testing.T) {
	cache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)

	sock, err := SockPath()
	if err != nil {
		t.Fatalf("SockPath failed: %v", err)
	}
	if want := filepath.Join(cache, "whisperdeck", SockName); sock != want {
		t.Errorf("SockPath = %s, want %s", sock, want)
	}

	pid, err := PidPath()
	if err != nil {
		t.Fatalf("PidPath failed: %v", err)
	}
	if want := filepath.Join(cache, "whisperdeck", PidName); pid != want {
		t.Errorf("PidPath = %s, want %s", pid, want)
	}
}

func TestPublicPidAPI(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if err := CheckExistingDaemon(); err != nil {
		t.Errorf("CheckExistingDaemon should succeed when no daemon running: %v", err)
	}
	if err := CreatePidFile(); err != nil {
		t.Fatalf("CreatePidFile failed: %v", err)
	}
	if err := CheckExistingDaemon(); err == nil {
		t.Error("CheckExistingDaemon should fail while this process owns the pid file")
	}
	if err := RemovePidFile(); err != nil {
		t.Fatalf("RemovePidFile failed: %v", err)
	}
}

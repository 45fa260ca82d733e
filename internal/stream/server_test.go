package stream

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/falconbuild/falcon/internal/subprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*Server, string, func()) {
	t.Helper()
	s := New(nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serveClient(conn)
		}
	}()

	stop := func() {
		cancel()
		s.Stop()
	}
	_ = ctx
	return s, ln.Addr().String(), stop
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	return conn
}

func readAll(t *testing.T, conn net.Conn, deadline time.Duration) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(deadline))
	data, _ := bufio.NewReader(conn).ReadString(0) // reads until EOF or error
	return data
}

func TestSubscriber_MidBuildConnectionReceivesFromTheStart(t *testing.T) {
	s, addr, stop := startServer(t)
	defer stop()

	s.NewBuild(1)
	s.NewCommand(1, "echo hi")
	s.WriteStdout(1, []byte("hi\n"))

	conn := dial(t, addr)
	defer conn.Close()

	// Give the writer goroutine a moment to flush what's buffered so far.
	time.Sleep(50 * time.Millisecond)
	s.EndCommand(1, subprocess.Succeeded)
	s.EndBuild(subprocess.Succeeded)

	out := readAll(t, conn, 2*time.Second)
	assert.Contains(t, out, `"id":1,"cmds":[`)
	assert.Contains(t, out, `{"id":1,"cmd":"echo hi"}`)
	assert.Contains(t, out, `"result":"SUCCEEDED"`)
}

func TestSubscriber_StdoutAndStderrChunksStayOrderedAndDistinct(t *testing.T) {
	s, addr, stop := startServer(t)
	defer stop()

	s.NewBuild(1)
	s.NewCommand(1, "mixed")
	s.WriteStdout(1, []byte("out-1"))
	s.WriteStderr(1, []byte("err-1"))
	s.WriteStdout(1, []byte("out-2"))

	conn := dial(t, addr)
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	s.EndCommand(1, subprocess.Succeeded)
	s.EndBuild(subprocess.Succeeded)

	out := readAll(t, conn, 2*time.Second)

	// Every chunk is its own closed element, so no later chunk can clobber
	// an earlier one — both stdout chunks and the stderr chunk must all be
	// present and in the order they were written.
	idxCmd := strings.Index(out, `{"id":1,"cmd":"mixed"}`)
	idxOut1 := strings.Index(out, `{"id":1,"stdout":"out-1"}`)
	idxErr1 := strings.Index(out, `{"id":1,"stderr":"err-1"}`)
	idxOut2 := strings.Index(out, `{"id":1,"stdout":"out-2"}`)
	idxStatus := strings.Index(out, `{"id":1,"status":"SUCCEEDED"}`)

	require.NotEqual(t, -1, idxCmd)
	require.NotEqual(t, -1, idxOut1)
	require.NotEqual(t, -1, idxErr1)
	require.NotEqual(t, -1, idxOut2)
	require.NotEqual(t, -1, idxStatus)
	assert.True(t, idxCmd < idxOut1)
	assert.True(t, idxOut1 < idxErr1)
	assert.True(t, idxErr1 < idxOut2)
	assert.True(t, idxOut2 < idxStatus)
}

func TestSubscriber_ConnectingAfterCompletedBuildWaitsForTheNext(t *testing.T) {
	s, addr, stop := startServer(t)
	defer stop()

	s.NewBuild(1)
	s.EndBuild(subprocess.Succeeded)

	conn := dial(t, addr)
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	s.NewBuild(2)
	s.EndBuild(subprocess.Failed)

	out := readAll(t, conn, 2*time.Second)
	assert.Contains(t, out, `"id":2,"cmds"`)
	assert.NotContains(t, out, `"id":1,"cmds"`)
}

func TestTwoSubscribers_BothReceiveTheFullDocument(t *testing.T) {
	s, addr, stop := startServer(t)
	defer stop()

	s.NewBuild(1)
	conn1 := dial(t, addr)
	defer conn1.Close()
	conn2 := dial(t, addr)
	defer conn2.Close()

	time.Sleep(50 * time.Millisecond)
	s.EndBuild(subprocess.Succeeded)

	out1 := readAll(t, conn1, 2*time.Second)
	out2 := readAll(t, conn2, 2*time.Second)
	assert.Equal(t, out1, out2)
	assert.Contains(t, out1, `"id":1,"cmds"`)
}

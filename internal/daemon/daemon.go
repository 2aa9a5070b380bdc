package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/leonardotrapani/whisperdeck/internal/app"
	"github.com/leonardotrapani/whisperdeck/internal/bus"
	"github.com/rs/zerolog/log"
)

// Controller is the part of *app.Controller the daemon drives.
type Controller interface {
	Init(ctx context.Context) error
	Snapshot() app.Snapshot
	ToggleRealtime(ctx context.Context) error
	StartSample() (*app.Pending, error)
	BeginRecordingToggle(ctx context.Context) (*app.Pending, error)
	StopRecording(ctx context.Context) (string, error)
	Cancel() bool
}

// Daemon serves one byte commands on the control socket:
//
//	r  toggle realtime transcription
//	f  transcribe the bundled sample file
//	t  toggle voice recording (stop transcribes it)
//	x  stop voice recording without transcribing
//	c  cancel running one-shot transcriptions
//	s  status line
//	v  protocol version
//	q  shut down
type Daemon struct {
	ctrl Controller

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ctrl Controller) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		ctrl:   ctrl,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Status renders the STATUS reply for a snapshot.
func Status(snap app.Snapshot) string {
	return fmt.Sprintf("STATUS ready=%t realtime=%s file=%s record=%s\n",
		snap.Model.Ready, snap.Realtime.Status, snap.File.Status, snap.Record.Status)
}

// Run loads the model in the background and serves commands until q, a
// signal or ctx ends it. Flows still running are waited for.
func (d *Daemon) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, d.cancel)
	defer stop()

	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("daemon: received signal, shutting down")
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	d.spawn("init", func(ctx context.Context) error { return d.ctrl.Init(ctx) })

	log.Info().Msg("daemon: started, listening on socket")

	defer d.wg.Wait()
	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Info().Msg("daemon: shutdown requested")
				return nil
			}
			log.Error().Err(err).Msg("daemon: accept error")
			d.cancel()
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// spawn runs a flow in the background. Its result is already in the
// controller's state, so errors are only logged. Once shutdown has begun fn
// runs inline with the cancelled context so claimed flows are still released.
func (d *Daemon) spawn(flow string, fn func(ctx context.Context) error) {
	if d.ctx.Err() != nil {
		_ = fn(d.ctx)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := fn(d.ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("flow", flow).Msg("daemon: flow failed")
		}
	}()
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Warn().Err(err).Msg("daemon: client read error")
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	fmt.Fprint(c, d.dispatch(line[0]))
}

func (d *Daemon) dispatch(cmd byte) string {
	snap := d.ctrl.Snapshot()

	switch cmd {
	case 's':
		return Status(snap)
	case 'v':
		return fmt.Sprintf("STATUS proto=%s\n", bus.ProtoVer)
	case 'q':
		d.cancel()
		return "OK quitting\n"
	case 'c':
		if d.ctrl.Cancel() {
			return "OK cancelled\n"
		}
		return "OK nothing_to_cancel\n"
	case 'x':
		uri, err := d.ctrl.StopRecording(d.ctx)
		switch {
		case err != nil:
			return fmt.Sprintf("ERR %v\n", err)
		case uri == "":
			return "OK not_recording\n"
		}
		return fmt.Sprintf("OK stored %s\n", uri)
	case 'r', 'f', 't':
		if !snap.Model.Ready {
			return "ERR not_ready\n"
		}
		return d.runFlow(cmd)
	}

	log.Warn().Str("cmd", string(cmd)).Msg("daemon: unknown command")
	return fmt.Sprintf("ERR unknown=%q\n", cmd)
}

// runFlow starts or stops a flow. The flow is claimed before the reply is
// written; transcriptions then finish in the background.
func (d *Daemon) runFlow(cmd byte) string {
	var (
		p   *app.Pending
		err error
	)
	switch cmd {
	case 'r':
		if err := d.ctrl.ToggleRealtime(d.ctx); err != nil {
			return fmt.Sprintf("ERR %v\n", err)
		}
		if d.ctrl.Snapshot().Realtime.Busy() {
			return "OK realtime started\n"
		}
		return "OK realtime stopped\n"
	case 'f':
		p, err = d.ctrl.StartSample()
	case 't':
		p, err = d.ctrl.BeginRecordingToggle(d.ctx)
	}

	switch {
	case errors.Is(err, app.ErrBusy):
		return "ERR busy\n"
	case err != nil:
		return fmt.Sprintf("ERR %v\n", err)
	case p == nil:
		return "OK recording started\n"
	}

	flow := "file"
	if cmd == 't' {
		flow = "record"
	}
	d.spawn(flow, func(ctx context.Context) error {
		_, err := p.Wait(ctx)
		return err
	})
	if cmd == 't' {
		return "OK recording stopped\n"
	}
	return "OK transcribing\n"
}

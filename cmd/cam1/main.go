// Command cam1 runs the Cam1 shot state machine: it watches for a placed
// ball, arms Cam2 over IPC, fires the strobe pulse train on impact, and
// solves ball speed, launch angles and spin from Cam2's strobed image
// (spec.md §4.6 "Cam1 process").
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pitrac/lm/internal/config"
	"github.com/pitrac/lm/internal/detector"
	"github.com/pitrac/lm/internal/exposure"
	"github.com/pitrac/lm/internal/fsm"
	"github.com/pitrac/lm/internal/imaging"
	"github.com/pitrac/lm/internal/ipc"
	"github.com/pitrac/lm/internal/obslog"
	"github.com/pitrac/lm/internal/pulse"
	"github.com/pitrac/lm/internal/result"
)

var (
	configFile  = flag.String("config", config.DefaultConfigPath, "Path to JSON tuning configuration file")
	listen      = flag.String("listen", ":8081", "HTTP listen address for debug/admin routes")
	dbPath      = flag.String("db-path", "shots.db", "Path to sqlite shot history database")
	cam2Addr    = flag.String("cam2-listen", ":9001", "Address this process listens on for Cam2's IPC connection")
	cameraDevID = flag.Int("camera-device", 0, "V4L2 camera device index")
	spiPort     = flag.String("spi-port", "", "SPI port name for the strobe pulse output (empty picks the first available)")
	shutterPin  = flag.String("shutter-pin", "GPIO17", "GPIO pin name for the shutter-enable line")
	simulate    = flag.Bool("simulate", false, "Use mock camera/pulse writer instead of real hardware")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("using default configuration: %v", err)
		cfg = config.Default()
	}

	logBuf := obslog.NewBuffer(obslog.DefaultCapacity)

	store, err := result.OpenStore(*dbPath)
	if err != nil {
		log.Fatalf("open shot store: %v", err)
	}
	defer store.Close()

	frames, writer := openHardware(cfg)
	defer frames.Close()
	defer writer.Close()

	transport, err := ipc.ListenTCP(*cam2Addr)
	if err != nil {
		log.Fatalf("listen for cam2 on %s: %v", *cam2Addr, err)
	}
	broker := ipc.NewBroker[*ipc.TCPTransport](transport)
	defer broker.Close()

	hooks := &cam1Hooks{
		cfg:      cfg,
		frames:   frames,
		detector: detector.New(cfg),
		selector: exposure.New(cfg),
		writer:   writer,
		broker:   broker,
		store:    store,
		log:      logBuf,
	}

	machine := fsm.NewCam1(hooks, cfg, fsm.New(fsm.InitializingCam1, logBuf))
	machine.ErrorSink = func(err error, recent []string) {
		msg := ipc.NewMessage(ipc.Error)
		msg.Text = err.Error()
		msg.Recent = recent
		if sendErr := broker.Send(msg); sendErr != nil {
			logBuf.Printf("cam1: failed to send error upstream: %v", sendErr)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		machine.Run()
	}()
	machine.Dispatch(fsm.Restart, nil)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := broker.Monitor(ctx); err != nil {
			logBuf.Printf("ipc monitor stopped: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runIPCListener(ctx, broker, hooks, machine)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runHTTPServer(ctx, *listen, broker, logBuf)
	}()

	<-ctx.Done()
	log.Println("cam1: shutting down")
	machine.Stop()
	wg.Wait()
}

// openHardware builds the FrameSource and pulse.Writer, using mocks in
// -simulate mode since no SPI bus or camera is present in CI (spec.md
// §10 "simulator mode").
func openHardware(cfg *config.Config) (imaging.FrameSource, pulse.Writer) {
	if *simulate {
		return newMockFrameSource(cfg.Cameras.Cam1), pulse.NewMockWriter()
	}

	frames, err := imaging.OpenCameraDevice(*cameraDevID)
	if err != nil {
		log.Fatalf("open camera device: %v", err)
	}
	writer, err := pulse.OpenSPIWriter(*spiPort, *shutterPin)
	if err != nil {
		log.Fatalf("open SPI pulse writer: %v", err)
	}
	return frames, writer
}

// runIPCListener subscribes to the broker and turns cam2 IPC messages
// into FSM events: Camera2PreImage dispatches Camera2PreImageReceived,
// and Camera2Image stashes the image on hooks before dispatching
// Camera2ImageReceived (spec.md §4.6 "Camera2PreImageReceived",
// "Camera2ImageReceived").
func runIPCListener(ctx context.Context, broker *ipc.Broker[*ipc.TCPTransport], hooks *cam1Hooks, machine *fsm.Machine) {
	id, ch := broker.Subscribe()
	defer broker.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			switch m.Type {
			case ipc.Camera2PreImage:
				machine.Dispatch(fsm.Camera2PreImageReceived, nil)
			case ipc.Camera2Image:
				msg := m
				hooks.lastCam2Image = &msg
				machine.Dispatch(fsm.Camera2ImageReceived, nil)
			}
		}
	}
}

func runHTTPServer(ctx context.Context, addr string, broker *ipc.Broker[*ipc.TCPTransport], logBuf *obslog.Buffer) {
	mux := http.NewServeMux()
	broker.AttachAdminRoutes(mux)

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logBuf.Printf("cam1 http server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logBuf.Printf("cam1 http server shutdown error: %v", err)
	}
}

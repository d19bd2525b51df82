// Command cam2 runs the Cam2 shot state machine: it announces readiness
// to Cam1 over IPC, waits for the strobe pulse's external-trigger edge,
// then captures and ships one frame back (spec.md §4.6 "Cam2 process").
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

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"

	"github.com/pitrac/lm/internal/config"
	"github.com/pitrac/lm/internal/fsm"
	"github.com/pitrac/lm/internal/imaging"
	"github.com/pitrac/lm/internal/ipc"
	"github.com/pitrac/lm/internal/obslog"
)

var (
	configFile  = flag.String("config", config.DefaultConfigPath, "Path to JSON tuning configuration file")
	listen      = flag.String("listen", ":8082", "HTTP listen address for debug/admin routes")
	cam1Addr    = flag.String("cam1-addr", "localhost:9001", "Address of Cam1's IPC listener")
	cameraDevID = flag.Int("camera-device", 1, "V4L2 camera device index")
	triggerPin  = flag.String("trigger-pin", "GPIO27", "GPIO pin name for the external-trigger input")
	simulate    = flag.Bool("simulate", false, "Use mock camera/trigger instead of real hardware")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("using default configuration: %v", err)
		cfg = config.Default()
	}

	logBuf := obslog.NewBuffer(obslog.DefaultCapacity)

	frames, pin := openHardware(cfg)
	defer frames.Close()

	transport, err := ipc.DialTCP(*cam1Addr)
	if err != nil {
		log.Fatalf("dial cam1 at %s: %v", *cam1Addr, err)
	}
	broker := ipc.NewBroker[*ipc.TCPTransport](transport)
	defer broker.Close()

	hooks := &cam2Hooks{frames: frames, broker: broker, triggerPin: pin, log: logBuf}
	machine := fsm.NewCam2(hooks, fsm.New(fsm.InitializingCam2, logBuf))
	machine.ErrorSink = func(err error, recent []string) {
		msg := ipc.NewMessage(ipc.Error)
		msg.Text = err.Error()
		msg.Recent = recent
		if sendErr := broker.Send(msg); sendErr != nil {
			logBuf.Printf("cam2: failed to send error upstream: %v", sendErr)
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
		runIPCListener(ctx, broker, machine)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runHTTPServer(ctx, *listen, broker, logBuf)
	}()

	<-ctx.Done()
	log.Println("cam2: shutting down")
	machine.Stop()
	wg.Wait()
}

func openHardware(cfg *config.Config) (imaging.FrameSource, gpio.PinIO) {
	if *simulate {
		return newMockFrameSource(cfg.Cameras.Cam2), nil
	}

	frames, err := imaging.OpenCameraDevice(*cameraDevID)
	if err != nil {
		log.Fatalf("open camera device: %v", err)
	}

	if _, err := host.Init(); err != nil {
		log.Fatalf("periph host init failed: %v", err)
	}
	pin := gpioreg.ByName(*triggerPin)
	if pin == nil {
		log.Fatalf("trigger pin %q not found", *triggerPin)
	}
	if err := pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		log.Fatalf("configure trigger pin as input: %v", err)
	}
	return frames, pin
}

// runIPCListener subscribes to the broker and dispatches
// CameraArmMessageReceived only once Cam1's RequestForCamera2Image
// actually arrives (spec.md §5 "Cam1's 'arm cam2' IPC must arrive before
// Cam2's hardware trigger fires; violation is detectable by Cam2
// receiving a trigger in the wrong state and is treated as an error"),
// matching cmd/cam1/main.go's runIPCListener.
func runIPCListener(ctx context.Context, broker *ipc.Broker[*ipc.TCPTransport], machine *fsm.Machine) {
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
			if m.Type == ipc.RequestForCamera2Image {
				machine.Dispatch(fsm.CameraArmMessageReceived, nil)
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
			logBuf.Printf("cam2 http server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logBuf.Printf("cam2 http server shutdown error: %v", err)
	}
}

package sio

import (
	"fmt"
	"io"
	"os"

	"github.com/karagenc/sio-client-go/internal/sync"
	"github.com/xiegeo/coloredgoroutine"
	"go.uber.org/zap"
)

type (
	Debugger interface {
		Log(main string, v ...any)
		WithContext(context string) Debugger
	}

	noopDebugger struct{}

	printDebugger struct {
		stdout  io.Writer
		context string
	}

	zapDebugger struct {
		logger  *zap.Logger
		context string
	}
)

func NewNoopDebugger() Debugger {
	return noopDebugger{}
}

func (d noopDebugger) Log(main string, _v ...any) {}

func (d noopDebugger) WithContext(context string) Debugger { return d }

// NewPrintDebugger prints to stdout. Each goroutine gets its own color.
func NewPrintDebugger() Debugger {
	return &printDebugger{stdout: coloredgoroutine.Colors(os.Stdout)}
}

var printMu sync.Mutex

// Log each field, adding colon if there's a subsequent field.
func (d *printDebugger) Log(main string, _v ...any) {
	printMu.Lock()
	defer printMu.Unlock()

	if len(d.context) != 0 {
		fmt.Fprint(d.stdout, d.context)
		if len(main) != 0 || len(_v) != 0 {
			fmt.Fprint(d.stdout, ": ")
		}
	}
	if len(main) != 0 {
		fmt.Fprint(d.stdout, main)
		if len(_v) != 0 {
			fmt.Fprint(d.stdout, ": ")
		}
	}

	for i, v := range _v {
		if i != 0 {
			fmt.Fprint(d.stdout, ": ")
		}
		fmt.Fprint(d.stdout, v)
	}

	fmt.Fprint(d.stdout, "\n")
	os.Stdout.Sync()
}

func (d printDebugger) WithContext(context string) Debugger {
	d.context = context
	return &d
}

// NewZapDebugger logs at debug level through logger.
func NewZapDebugger(logger *zap.Logger) Debugger {
	return &zapDebugger{logger: logger}
}

func (d *zapDebugger) Log(main string, v ...any) {
	if ce := d.logger.Check(zap.DebugLevel, main); ce != nil {
		fields := make([]zap.Field, 0, len(v)+1)
		if d.context != "" {
			fields = append(fields, zap.String("context", d.context))
		}
		for i, value := range v {
			fields = append(fields, zap.Any(fmt.Sprintf("v%d", i), value))
		}
		ce.Write(fields...)
	}
}

func (d zapDebugger) WithContext(context string) Debugger {
	d.context = context
	return &d
}

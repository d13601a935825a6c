package app

import (
	"io"

	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/localsession"
	"github.com/specialistvlad/gridpi/internal/report"
	"github.com/specialistvlad/gridpi/internal/session"
	"github.com/specialistvlad/gridpi/internal/wssession"
	"github.com/specialistvlad/gridpi/modules/http_request"
	"github.com/specialistvlad/gridpi/modules/print"
	"github.com/specialistvlad/gridpi/modules/socketio"
)

// coreSessions maps every transport compiled into the binary to its session
// factory.
func coreSessions() map[config.Transport]session.Factory {
	return map[config.Transport]session.Factory{
		config.TransportLocal:     &localsession.Factory{},
		config.TransportWebSocket: &wssession.Factory{},
	}
}

// buildReporters turns the job's report blocks into reporters. The console
// reporter is always first, even when the job does not name it.
func buildReporters(outW io.Writer, reports []*config.Report) report.Multi {
	verbose := false
	var extra report.Multi
	for _, r := range reports {
		switch r.Kind {
		case config.ReportConsole:
			verbose = verbose || r.Verbose
		case config.ReportSocketIO:
			extra = append(extra, socketio.New(*r.SocketIO))
		case config.ReportHTTP:
			extra = append(extra, http_request.New(*r.HTTP))
		}
	}
	return append(report.Multi{print.New(outW, verbose)}, extra...)
}

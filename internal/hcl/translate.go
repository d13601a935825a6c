package hcl

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/gridpi/internal/config"
	"github.com/specialistvlad/gridpi/internal/ctxlog"
)

// translateJob evaluates a decoded job block over config.Default().
func translateJob(ctx context.Context, b *jobBlock, evalCtx *hcl.EvalContext) (*config.Job, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Translating job block.", "name", b.Name)

	job := config.Default()
	job.Name = b.Name

	var transport string
	steps := []struct {
		attr string
		eval func() error
	}{
		{"samples", func() error { return evalInt64(b.Samples, evalCtx, &job.Samples) }},
		{"workers", func() error { return evalInt(b.Workers, evalCtx, &job.Workers) }},
		{"lanes", func() error { return evalInt(b.Lanes, evalCtx, &job.Lanes) }},
		{"root", func() error { return evalInt(b.Root, evalCtx, &job.Root) }},
		{"device", func() error { return evalString(b.Device, evalCtx, &job.Device) }},
		{"transport", func() error { return evalString(b.Transport, evalCtx, &transport) }},
		{"rank", func() error { return evalInt(b.Rank, evalCtx, &job.Rank) }},
		{"listen", func() error { return evalString(b.Listen, evalCtx, &job.Listen) }},
		{"coordinator", func() error { return evalString(b.Coordinator, evalCtx, &job.Coordinator) }},
		{"collective_timeout", func() error { return evalDuration(b.CollectiveTimeout, evalCtx, &job.CollectiveTimeout) }},
		{"connect_timeout", func() error { return evalDuration(b.ConnectTimeout, evalCtx, &job.ConnectTimeout) }},
	}
	for _, s := range steps {
		if err := s.eval(); err != nil {
			return nil, fmt.Errorf("job %q attribute %q: %w", b.Name, s.attr, err)
		}
	}
	if transport != "" {
		job.Transport = config.Transport(transport)
	}

	for i, rb := range b.Reports {
		r, err := translateReport(rb, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("job %q report #%d (%s): %w", b.Name, i, rb.Kind, err)
		}
		job.Reports = append(job.Reports, r)
	}
	return job, nil
}

func translateReport(b *reportBlock, evalCtx *hcl.EvalContext) (*config.Report, error) {
	r := &config.Report{Kind: b.Kind}
	if err := evalBool(b.Verbose, evalCtx, &r.Verbose); err != nil {
		return nil, err
	}
	switch b.Kind {
	case config.ReportSocketIO:
		return translateSocketIO(r, b, evalCtx)
	case config.ReportHTTP:
		return translateHTTP(r, b, evalCtx)
	}
	return r, nil
}

func translateSocketIO(r *config.Report, b *reportBlock, evalCtx *hcl.EvalContext) (*config.Report, error) {
	sio := &config.SocketIOReport{
		Event:   config.DefaultSocketIOEvent,
		Timeout: config.DefaultReportTimeout,
	}
	for _, err := range []error{
		evalString(b.URL, evalCtx, &sio.URL),
		evalString(b.Namespace, evalCtx, &sio.Namespace),
		evalString(b.Event, evalCtx, &sio.Event),
		evalString(b.AckEvent, evalCtx, &sio.AckEvent),
		evalDuration(b.Timeout, evalCtx, &sio.Timeout),
		evalBool(b.InsecureSkipVerify, evalCtx, &sio.InsecureSkipVerify),
	} {
		if err != nil {
			return nil, err
		}
	}
	r.SocketIO = sio
	return r, nil
}

func translateHTTP(r *config.Report, b *reportBlock, evalCtx *hcl.EvalContext) (*config.Report, error) {
	h := &config.HTTPReport{
		Method:  config.DefaultHTTPMethod,
		Timeout: config.DefaultReportTimeout,
	}
	for _, err := range []error{
		evalString(b.URL, evalCtx, &h.URL),
		evalString(b.Method, evalCtx, &h.Method),
		evalDuration(b.Timeout, evalCtx, &h.Timeout),
	} {
		if err != nil {
			return nil, err
		}
	}
	h.Method = strings.ToUpper(h.Method)
	r.HTTP = h
	return r, nil
}

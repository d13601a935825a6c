package config

import "time"

// Overrides carries values set explicitly outside the job file (flags or
// environment). A nil field leaves the job's value alone.
type Overrides struct {
	Samples           *int64
	Workers           *int
	Lanes             *int
	Root              *int
	Rank              *int
	Device            *string
	Transport         *string
	Listen            *string
	Coordinator       *string
	CollectiveTimeout *time.Duration
	ConnectTimeout    *time.Duration
	// SocketIOURL points the first socketio report at a URL, adding one with
	// default settings if the job has none.
	SocketIOURL *string
	// HTTPURL does the same for the first http report.
	HTTPURL *string
}

// Apply writes every set override into job.
func (o *Overrides) Apply(job *Job) {
	if o == nil {
		return
	}
	setIf(&job.Samples, o.Samples)
	setIf(&job.Workers, o.Workers)
	setIf(&job.Lanes, o.Lanes)
	setIf(&job.Root, o.Root)
	setIf(&job.Rank, o.Rank)
	setIf(&job.Device, o.Device)
	setIf(&job.Listen, o.Listen)
	setIf(&job.Coordinator, o.Coordinator)
	setIf(&job.CollectiveTimeout, o.CollectiveTimeout)
	setIf(&job.ConnectTimeout, o.ConnectTimeout)
	if o.Transport != nil {
		job.Transport = Transport(*o.Transport)
	}
	if o.SocketIOURL != nil {
		applySocketIOURL(job, *o.SocketIOURL)
	}
	if o.HTTPURL != nil {
		applyHTTPURL(job, *o.HTTPURL)
	}
}

func applySocketIOURL(job *Job, url string) {
	for _, r := range job.Reports {
		if r.Kind == ReportSocketIO && r.SocketIO != nil {
			r.SocketIO.URL = url
			return
		}
	}
	job.Reports = append(job.Reports, &Report{
		Kind: ReportSocketIO,
		SocketIO: &SocketIOReport{
			URL:     url,
			Event:   DefaultSocketIOEvent,
			Timeout: DefaultReportTimeout,
		},
	})
}

func applyHTTPURL(job *Job, url string) {
	for _, r := range job.Reports {
		if r.Kind == ReportHTTP && r.HTTP != nil {
			r.HTTP.URL = url
			return
		}
	}
	job.Reports = append(job.Reports, &Report{
		Kind: ReportHTTP,
		HTTP: &HTTPReport{URL: url, Method: DefaultHTTPMethod, Timeout: DefaultReportTimeout},
	})
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode the top-level blocks of a file.
type fileRoot struct {
	Jobs   []*jobBlock `hcl:"job,block"`
	Remain hcl.Body    `hcl:",remain"`
}

// jobBlock mirrors `job "<name>" { ... }`. Attributes are kept as expressions
// so they can be evaluated against the loader's EvalContext; absent ones
// evaluate to null and leave the default in place.
type jobBlock struct {
	Name string `hcl:"name,label"`

	Samples           hcl.Expression `hcl:"samples,optional"`
	Workers           hcl.Expression `hcl:"workers,optional"`
	Lanes             hcl.Expression `hcl:"lanes,optional"`
	Root              hcl.Expression `hcl:"root,optional"`
	Device            hcl.Expression `hcl:"device,optional"`
	Transport         hcl.Expression `hcl:"transport,optional"`
	Rank              hcl.Expression `hcl:"rank,optional"`
	Listen            hcl.Expression `hcl:"listen,optional"`
	Coordinator       hcl.Expression `hcl:"coordinator,optional"`
	CollectiveTimeout hcl.Expression `hcl:"collective_timeout,optional"`
	ConnectTimeout    hcl.Expression `hcl:"connect_timeout,optional"`

	Reports []*reportBlock `hcl:"report,block"`
}

// reportBlock mirrors `report "<kind>" { ... }`. Which attributes apply
// depends on the kind.
type reportBlock struct {
	Kind string `hcl:"kind,label"`

	Verbose hcl.Expression `hcl:"verbose,optional"`

	URL                hcl.Expression `hcl:"url,optional"`
	Namespace          hcl.Expression `hcl:"namespace,optional"`
	Event              hcl.Expression `hcl:"event,optional"`
	AckEvent           hcl.Expression `hcl:"ack_event,optional"`
	Timeout            hcl.Expression `hcl:"timeout,optional"`
	InsecureSkipVerify hcl.Expression `hcl:"insecure_skip_verify,optional"`
	Method             hcl.Expression `hcl:"method,optional"`
}

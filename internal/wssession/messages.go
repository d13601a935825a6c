package wssession

import "time"

// CollectivePath is the HTTP path the root serves the collective on.
const CollectivePath = "/collective"

const (
	writeTimeout = 5 * time.Second
	readLimit    = 4096
)

type messageType string

const (
	msgHello        messageType = "hello"
	msgContribution messageType = "contribution"
	msgAbort        messageType = "abort"
	msgAck          messageType = "ack"
)

// message is the single JSON frame exchanged between a rank and the root.
//
//	hello        rank -> root   {rank, size}
//	contribution rank -> root   {rank, root, value}
//	abort        either way     {rank, reason}
//	ack          root -> rank   {}
type message struct {
	Type   messageType `json:"type"`
	Rank   int         `json:"rank"`
	Size   int         `json:"size,omitempty"`
	Root   int         `json:"root"`
	Value  float64     `json:"value,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

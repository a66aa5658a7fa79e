package com

import (
	"github.com/pattyshack/gmi/mi"
	"github.com/pattyshack/gmi/tree"
)

// Handler receives every record the channel reads.  All callbacks run on
// the goroutine which called Command / Dispatch.
type Handler interface {
	// Called for every result record, including the ones returned by
	// Command.
	OnResult(record *mi.Record)

	OnExecAsync(class mi.AsyncClass, results *tree.Tree)
	OnNotifyAsync(class mi.AsyncClass, results *tree.Tree)
	OnStatusAsync(class mi.AsyncClass, results *tree.Tree)

	OnConsoleStream(text string)
	OnTargetStream(text string)
	OnLogStream(text string)
}

// NopHandler ignores everything.  Embed it to implement a subset of Handler.
type NopHandler struct{}

var _ Handler = NopHandler{}

func (NopHandler) OnResult(*mi.Record)                     {}
func (NopHandler) OnExecAsync(mi.AsyncClass, *tree.Tree)   {}
func (NopHandler) OnNotifyAsync(mi.AsyncClass, *tree.Tree) {}
func (NopHandler) OnStatusAsync(mi.AsyncClass, *tree.Tree) {}
func (NopHandler) OnConsoleStream(string)                  {}
func (NopHandler) OnTargetStream(string)                   {}
func (NopHandler) OnLogStream(string)                      {}

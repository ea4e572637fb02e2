package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/flexireact/flexi/pkg/markup"
)

// StreamingRenderer renders a document in two phases: the shell (everything
// except unresolved async boundaries, which render their fallbacks) is
// written and flushed first, then each async boundary streams in as it
// resolves. This gives faster time-to-first-byte for pages with slow
// data-dependent sections.
type StreamingRenderer struct {
	*Renderer
	w       io.Writer
	flusher http.Flusher

	pending     []pendingSlot
	slotCounter int
}

// pendingSlot is an async boundary deferred past the shell flush.
type pendingSlot struct {
	id   string
	node *markup.Node
}

// NewStreaming creates a streaming renderer writing to w. If w implements
// http.Flusher, content is flushed after the shell and after every resolved
// chunk.
func NewStreaming(ctx context.Context, w io.Writer, config Config) *StreamingRenderer {
	flusher, _ := w.(http.Flusher)
	s := &StreamingRenderer{
		Renderer: NewWithContext(ctx, config),
		w:        w,
		flusher:  flusher,
	}
	s.Renderer.onAsync = s.deferAsync
	return s
}

// StreamDocument renders a complete HTML document with incremental flushing.
// The shell, with fallbacks in place of async content, is flushed as soon as
// it is complete. Async chunks follow; a chunk whose resolver fails leaves
// its fallback in place and the failure is reported in the returned error
// after all other chunks have streamed. A cancelled context stops chunk
// emission; the document is still closed so the markup stays well formed.
func (s *StreamingRenderer) StreamDocument(doc Document) error {
	if err := s.renderDocumentOpen(s.w, doc); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, `<div id="%s">`, escapeAttr(doc.Mount())); err != nil {
		return err
	}
	if err := s.ToWriter(s.w, doc.Body); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("</div>\n")); err != nil {
		return err
	}

	// Shell ready.
	s.flush()

	streamErr := s.streamPending()

	if err := s.renderDocumentClose(s.w, doc); err != nil {
		return err
	}
	s.flush()

	return streamErr
}

// deferAsync renders an async boundary's fallback into the shell inside a
// slot marker and queues the boundary for post-shell resolution.
func (s *StreamingRenderer) deferAsync(w io.Writer, node *markup.Node, depth int) error {
	s.slotCounter++
	id := fmt.Sprintf("fs%d", s.slotCounter)
	s.pending = append(s.pending, pendingSlot{id: id, node: node})

	if _, err := fmt.Fprintf(w, `<div data-flexi-slot="%s">`, id); err != nil {
		return err
	}
	if err := s.renderNode(w, node.Fallback, depth); err != nil {
		return err
	}
	_, err := w.Write([]byte("</div>"))
	return err
}

// streamPending resolves queued boundaries in order, emitting one template
// plus swap script per boundary. Boundaries nested inside resolved content
// are appended to the queue and streamed in turn. All pending content has
// streamed ("all ready") when this returns.
func (s *StreamingRenderer) streamPending() error {
	var errs []error

	for i := 0; i < len(s.pending); i++ {
		select {
		case <-s.ctx.Done():
			// Connection gone; stop emitting chunks.
			return s.ctx.Err()
		default:
		}

		slot := s.pending[i]
		resolved, err := resolveAsync(s.ctx, slot.node)
		if err != nil {
			errs = append(errs, fmt.Errorf("async slot %s: %w", slot.id, err))
			continue
		}

		if _, err := fmt.Fprintf(s.w, `<template data-flexi-tpl="%s">`, slot.id); err != nil {
			return err
		}
		if err := s.renderNode(s.w, resolved, 0); err != nil {
			return err
		}
		if _, err := s.w.Write([]byte("</template>")); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(s.w, swapScript, slot.id, slot.id); err != nil {
			return err
		}
		s.flush()
	}

	return errors.Join(errs...)
}

// swapScript replaces a shell slot with its streamed template content.
const swapScript = `<script>(function(){var t=document.querySelector('template[data-flexi-tpl="%s"]');var s=document.querySelector('[data-flexi-slot="%s"]');if(t&&s){s.replaceWith(t.content.cloneNode(true));t.remove();}})();</script>` + "\n"

// flush flushes the writer if it supports flushing.
func (s *StreamingRenderer) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// FlushableWriter wraps an io.Writer with a flush counter. It is used by
// tests to observe streaming behavior without an http.ResponseWriter.
type FlushableWriter struct {
	io.Writer
	FlushCount int
}

// Flush implements http.Flusher.
func (w *FlushableWriter) Flush() {
	w.FlushCount++
}

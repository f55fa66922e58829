package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bitop-dev/ai-sdk-go/internal/stitch"
	"github.com/bitop-dev/ai-sdk-go/provider"
)

type StreamTextRequest struct {
	BaseRequest

	// Transforms are applied in order; the last one feeds FullStream.
	Transforms []StreamTransform

	IncludeRawChunks bool

	// OnChunk receives content-bearing parts. The stream waits for every
	// callback to return.
	OnChunk func(event ChunkEvent)
	OnError func(event ErrorEvent)
	OnAbort func(event AbortEvent)
}

type ChunkEvent struct {
	Part StreamPart
}

type ErrorEvent struct {
	Err error
}

type AbortEvent struct {
	Steps []StepResult
}

var errStreamStopped = errors.New("stream stopped")

// StreamText starts a streaming generation. Argument and prompt errors are
// returned right away; everything else is reported through the stream.
func StreamText(ctx context.Context, req StreamTextRequest) (*StreamResult, error) {
	return streamText(ctx, req, []StopCondition{StepCountIs(1)})
}

func streamText(ctx context.Context, req StreamTextRequest, defaultStop []StopCondition) (*StreamResult, error) {
	r, err := newRun(req.BaseRequest, defaultStop)
	if err != nil {
		return nil, err
	}

	runCtx, runCancel := context.WithCancelCause(ctx)
	runCtx, timeoutCancel := applyTimeout(runCtx, req.Timeout)
	pipeCtx, pipeCancel := context.WithCancel(context.Background())

	src := stitch.New[StreamPart]()
	d := &streamDriver{run: r, req: req, ctx: runCtx, pipe: pipeCtx, src: src}

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			d.stopped.Store(true)
			src.Terminate()
			runCancel(errStreamStopped)
			pipeCancel()
		})
	}

	res := &StreamResult{done: make(chan struct{}), stop: stop, req: req}
	d.res = res

	var out <-chan StreamPart = src.Out()
	for _, t := range req.Transforms {
		out = t(pipeCtx, out, TransformOptions{Tools: req.Tools, StopStream: stop})
	}
	res.parts = res.observe(pipeCtx, out)

	go func() {
		defer timeoutCancel()
		defer runCancel(nil)
		d.drive()
	}()
	return res, nil
}

type streamDriver struct {
	*run

	req  StreamTextRequest
	ctx  context.Context
	pipe context.Context
	src  *stitch.Stream[StreamPart]
	res  *StreamResult

	stopped atomic.Bool
}

func (d *streamDriver) emit(ch chan<- StreamPart, p StreamPart) {
	if p == nil {
		return
	}
	select {
	case ch <- p:
	case <-d.pipe.Done():
	}
}

// emitSource adds a short source holding parts.
func (d *streamDriver) emitSource(parts ...StreamPart) {
	ch := make(chan StreamPart, len(parts))
	for _, p := range parts {
		if p != nil {
			ch <- p
		}
	}
	close(ch)
	d.src.Add(ch)
}

func (d *streamDriver) drive() {
	defer d.src.Close()

	d.emitSource(StreamStart{})
	for _, c := range d.resolvePendingApprovals(d.ctx) {
		d.emitSource(contentPart(c))
	}

	for d.ctx.Err() == nil {
		ch := make(chan StreamPart)
		d.src.Add(ch)
		more := d.step(ch)
		close(ch)
		if !more {
			break
		}
	}

	if d.ctx.Err() != nil {
		if d.stopped.Load() {
			d.logger.Debug("stream stopped early", "steps", len(d.steps))
			return
		}
		d.res.setErr(abortedErr(d.ctx))
		d.emitSource(StreamAbort{Steps: append([]StepResult(nil), d.steps...)})
		return
	}

	reason := FinishUnknown
	if n := len(d.steps); n > 0 {
		reason = d.steps[n-1].FinishReason
	}
	d.emitSource(StreamFinish{FinishReason: reason, TotalUsage: sumUsage(d.steps)})
}

type toolInput struct {
	name             string
	providerExecuted bool
	dynamic          bool
	buf              strings.Builder
}

type toolEvent struct {
	content     Content
	preliminary bool
}

// stepState accumulates one streamed step.
type stepState struct {
	call    *stepCall
	started bool

	content []Content
	texts   map[string]int
	reasons map[string]int
	// open tracks started text and reasoning ids in start order.
	open []openID

	inputs map[string]*toolInput
	ended  map[string]bool

	calls   []ToolCall
	outputs map[string]Content
	pending int
	results chan toolEvent

	warnings         []Warning
	finishReason     FinishReason
	usage            Usage
	providerMetadata ProviderMetadata
	response         *provider.ResponseMetadata
	request          *provider.RequestMetadata

	fatal error
}

type openID struct {
	id        string
	reasoning bool
}

func (st *stepState) closeID(id string, reasoning bool) bool {
	for i, o := range st.open {
		if o.id == id && o.reasoning == reasoning {
			st.open = append(st.open[:i], st.open[i+1:]...)
			return true
		}
	}
	return false
}

func (st *stepState) isOpen(id string, reasoning bool) bool {
	for _, o := range st.open {
		if o.id == id && o.reasoning == reasoning {
			return true
		}
	}
	return false
}

// step streams one model call and reports whether another step follows.
func (d *streamDriver) step(ch chan<- StreamPart) bool {
	call, err := d.prepareStep()
	if err != nil {
		d.fail(ch, err)
		return false
	}
	call.opts.IncludeRawChunks = d.req.IncludeRawChunks

	resp, err := retryCall(d.ctx, d.retrier, func(ctx context.Context) (*provider.StreamResponse, error) {
		return call.model.DoStream(ctx, call.opts)
	})
	if err != nil {
		if d.ctx.Err() == nil {
			d.fail(ch, err)
		}
		return false
	}
	if resp == nil || resp.Stream == nil {
		d.fail(ch, &ModelError{Provider: call.model.Provider(), Message: "model returned no stream"})
		return false
	}
	defer resp.Stream.Close()

	st := &stepState{
		call:         call,
		texts:        map[string]int{},
		reasons:      map[string]int{},
		inputs:       map[string]*toolInput{},
		ended:        map[string]bool{},
		outputs:      map[string]Content{},
		results:      make(chan toolEvent),
		finishReason: FinishUnknown,
		response:     resp.Response,
		request:      resp.Request,
	}

	provCh := make(chan provider.StreamPart)
	var streamErr error
	go func() {
		defer close(provCh)
		for resp.Stream.Next() {
			select {
			case provCh <- resp.Stream.Part():
			case <-d.ctx.Done():
				return
			}
		}
		streamErr = resp.Stream.Err()
	}()

	for provCh != nil || st.pending > 0 {
		select {
		case p, ok := <-provCh:
			if !ok {
				provCh = nil
				continue
			}
			d.handle(ch, st, p)
		case ev := <-st.results:
			if !ev.preliminary {
				st.pending--
				if tr, ok := ev.content.(ToolResult); ok {
					st.outputs[tr.ToolCallID] = ev.content
				} else if te, ok := ev.content.(ToolError); ok {
					st.outputs[te.ToolCallID] = ev.content
				}
			}
			d.emit(ch, contentPart(ev.content))
		case <-d.ctx.Done():
			d.abortStep(ch, st)
			return false
		}
	}
	if d.ctx.Err() != nil {
		d.abortStep(ch, st)
		return false
	}

	if streamErr != nil {
		st.fatal = mapModelError(streamErr)
		d.emit(ch, StreamError{Err: st.fatal})
	}
	d.ensureStarted(ch, st)
	d.closeOpen(ch, st)

	content := st.content
	for _, c := range st.calls {
		if out, ok := st.outputs[c.ToolCallID]; ok {
			content = append(content, out)
		}
	}
	reason := st.finishReason
	if st.fatal != nil && reason == FinishUnknown {
		reason = FinishError
	}
	step, more := d.finishStep(StepResult{
		Content:          content,
		FinishReason:     reason,
		Usage:            st.usage,
		Warnings:         st.warnings,
		Request:          requestMetadata(st.request),
		Response:         responseMetadata(call.model, st.response),
		ProviderMetadata: st.providerMetadata,
	}, st.calls)
	if err := d.persistStep(d.ctx, step); err != nil && st.fatal == nil {
		st.fatal = err
		d.emit(ch, StreamError{Err: err})
	}
	d.emit(ch, StreamFinishStep{
		Response:         step.Response,
		Usage:            step.Usage,
		FinishReason:     step.FinishReason,
		ProviderMetadata: step.ProviderMetadata,
		Step:             step,
	})

	if st.fatal != nil {
		d.res.setErr(st.fatal)
		return false
	}
	return more
}

// closeOpen ends every text and reasoning block still open, oldest first.
func (d *streamDriver) closeOpen(ch chan<- StreamPart, st *stepState) {
	for len(st.open) > 0 {
		o := st.open[0]
		st.open = st.open[1:]
		if o.reasoning {
			d.emit(ch, StreamReasoningEnd{ID: o.id})
		} else {
			d.emit(ch, StreamTextEnd{ID: o.id})
		}
	}
}

// abortStep ends the open blocks of an interrupted step. A stopped stream
// emits nothing more.
func (d *streamDriver) abortStep(ch chan<- StreamPart, st *stepState) {
	if d.stopped.Load() {
		return
	}
	d.closeOpen(ch, st)
}

func (d *streamDriver) fail(ch chan<- StreamPart, err error) {
	d.res.setErr(err)
	d.emit(ch, StreamError{Err: err})
}

func (d *streamDriver) ensureStarted(ch chan<- StreamPart, st *stepState) {
	if st.started {
		return
	}
	st.started = true
	d.emit(ch, StreamStartStep{Request: requestMetadata(st.request), Warnings: st.warnings})
}

func (d *streamDriver) handle(ch chan<- StreamPart, st *stepState, p provider.StreamPart) {
	if ss, ok := p.(provider.StreamStart); ok {
		st.warnings = ss.Warnings
		d.ensureStarted(ch, st)
		return
	}
	d.ensureStarted(ch, st)

	switch v := p.(type) {
	case provider.ResponseMetadataPart:
		m := v.ResponseMetadata
		st.response = &m

	case provider.TextStart:
		d.startText(ch, st, v.ID, v.ProviderMetadata)
	case provider.TextDelta:
		if !st.isOpen(v.ID, false) {
			d.startText(ch, st, v.ID, nil)
		}
		i := st.texts[v.ID]
		tc := st.content[i].(TextContent)
		tc.Text += v.Delta
		st.content[i] = tc
		d.emit(ch, StreamTextDelta{ID: v.ID, Text: v.Delta, ProviderMetadata: v.ProviderMetadata})
	case provider.TextEnd:
		if st.closeID(v.ID, false) {
			d.emit(ch, StreamTextEnd{ID: v.ID, ProviderMetadata: v.ProviderMetadata})
		}

	case provider.ReasoningStart:
		d.startReasoning(ch, st, v.ID, v.ProviderMetadata)
	case provider.ReasoningDelta:
		if !st.isOpen(v.ID, true) {
			d.startReasoning(ch, st, v.ID, nil)
		}
		i := st.reasons[v.ID]
		rc := st.content[i].(ReasoningContent)
		rc.Text += v.Delta
		st.content[i] = rc
		d.emit(ch, StreamReasoningDelta{ID: v.ID, Text: v.Delta, ProviderMetadata: v.ProviderMetadata})
	case provider.ReasoningEnd:
		if st.closeID(v.ID, true) {
			d.emit(ch, StreamReasoningEnd{ID: v.ID, ProviderMetadata: v.ProviderMetadata})
		}

	case provider.ToolInputStart:
		st.inputs[v.ID] = &toolInput{name: v.ToolName, providerExecuted: v.ProviderExecuted, dynamic: v.Dynamic}
		d.emit(ch, StreamToolInputStart{ID: v.ID, ToolName: v.ToolName, ProviderExecuted: v.ProviderExecuted, Dynamic: v.Dynamic})
		if t, ok := d.base.Tools[v.ToolName]; ok && t.OnInputStart != nil {
			t.OnInputStart(ToolInputStartEvent{ToolName: v.ToolName, ToolCallID: v.ID, Messages: st.call.messages})
		}
	case provider.ToolInputDelta:
		in, ok := st.inputs[v.ID]
		if !ok {
			return
		}
		in.buf.WriteString(v.Delta)
		d.emit(ch, StreamToolInputDelta{ID: v.ID, Delta: v.Delta})
		if t, ok := d.base.Tools[in.name]; ok && t.OnInputDelta != nil {
			t.OnInputDelta(ToolInputDeltaEvent{ToolName: in.name, ToolCallID: v.ID, InputTextDelta: v.Delta})
		}
	case provider.ToolInputEnd:
		in, ok := st.inputs[v.ID]
		if !ok {
			return
		}
		delete(st.inputs, v.ID)
		st.ended[v.ID] = true
		d.emit(ch, StreamToolInputEnd{ID: v.ID})
		d.toolCall(ch, st, provider.ToolCall{
			ToolCallID:       v.ID,
			ToolName:         in.name,
			Input:            in.buf.String(),
			ProviderExecuted: in.providerExecuted,
			Dynamic:          in.dynamic,
		})
	case provider.ToolCallStreamPart:
		if st.ended[v.ToolCallID] {
			return
		}
		st.ended[v.ToolCallID] = true
		d.toolCall(ch, st, v.ToolCall)

	case provider.ToolResultStreamPart:
		c := providerToolResult(v.ToolResult)
		st.content = append(st.content, c)
		d.emit(ch, contentPart(c))
	case provider.FileStreamPart:
		f := generatedFile(v.File)
		st.content = append(st.content, FileContent{File: f})
		d.emit(ch, StreamFile{File: f})
	case provider.SourceStreamPart:
		st.content = append(st.content, SourceContent{Source: v.Source})
		d.emit(ch, StreamSource{Source: v.Source})

	case provider.Finish:
		st.finishReason = v.FinishReason
		st.usage = v.Usage
		st.providerMetadata = provider.MergeMetadata(st.providerMetadata, v.ProviderMetadata)
	case provider.Raw:
		if d.req.IncludeRawChunks {
			d.emit(ch, StreamRaw{Value: v.Value})
		}
	case provider.ErrorPart:
		d.emit(ch, StreamError{Err: v.Err})
	}
}

func (d *streamDriver) startText(ch chan<- StreamPart, st *stepState, id string, md ProviderMetadata) {
	st.texts[id] = len(st.content)
	st.content = append(st.content, TextContent{ProviderMetadata: md})
	st.open = append(st.open, openID{id: id})
	d.emit(ch, StreamTextStart{ID: id, ProviderMetadata: md})
}

func (d *streamDriver) startReasoning(ch chan<- StreamPart, st *stepState, id string, md ProviderMetadata) {
	st.reasons[id] = len(st.content)
	st.content = append(st.content, ReasoningContent{ProviderMetadata: md})
	st.open = append(st.open, openID{id: id, reasoning: true})
	d.emit(ch, StreamReasoningStart{ID: id, ProviderMetadata: md})
}

// toolCall parses a completed call and schedules its execution.
func (d *streamDriver) toolCall(ch chan<- StreamPart, st *stepState, pc provider.ToolCall) {
	if st.fatal != nil {
		return
	}
	tool, known := d.base.Tools[pc.ToolName]

	tc, err := ParseToolCall(d.ctx, pc, d.base.Tools, d.base.RepairToolCall, st.call.messages)
	if err != nil {
		if known && tool.OnInputError != nil {
			tool.OnInputError(ToolInputErrorEvent{ToolName: pc.ToolName, ToolCallID: pc.ToolCallID, Input: pc.Input, Err: err})
		}
		st.fatal = err
		d.emit(ch, StreamError{Err: err})
		return
	}
	tool, known = d.base.Tools[tc.ToolName]

	st.content = append(st.content, tc)
	st.calls = append(st.calls, tc)
	d.emit(ch, StreamToolCall{ToolCall: tc})
	if known && tool.OnInputAvailable != nil {
		tool.OnInputAvailable(ToolInputAvailableEvent{ToolName: tc.ToolName, ToolCallID: tc.ToolCallID, Input: tc.Input})
	}

	runner := d.runner(st.call.messages)
	action, c := runner.decide(d.ctx, tc)
	switch action {
	case actionDone:
		st.outputs[tc.ToolCallID] = c
		d.emit(ch, contentPart(c))
		return
	case actionNone:
		return
	}

	if tool.Sequential {
		runner.onPreliminary = func(tr ToolResult) { d.emit(ch, StreamToolResult{ToolResult: tr}) }
		out := runner.run(d.ctx, tc)
		st.outputs[tc.ToolCallID] = out
		d.emit(ch, contentPart(out))
		return
	}

	results := st.results
	send := func(ev toolEvent) {
		select {
		case results <- ev:
		case <-d.ctx.Done():
		}
	}
	runner.onPreliminary = func(tr ToolResult) { send(toolEvent{content: tr, preliminary: true}) }
	st.pending++
	go func() {
		send(toolEvent{content: runner.run(d.ctx, tc)})
	}()
}

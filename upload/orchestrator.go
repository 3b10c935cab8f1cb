package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/transport"
)

// Sender sends one signed API request.
type Sender interface {
	Send(ctx context.Context, r transport.Request) (transport.Response, error)
}

// TokenSource issues a fresh auth token per call.
type TokenSource interface {
	Token() string
}

// Transition is one state change of an upload run.
type Transition struct {
	RunID       uuid.UUID
	PackageID   string
	DatasetID   string
	Name        string
	Size        int64
	ContentType string
	State       State
	Stage       datalake.Stage
	Err         error
}

// Recorder persists transitions, typically to the upload journal.
type Recorder interface {
	RecordTransition(ctx context.Context, t Transition) error
}

// Observer is told about every finished run. stage is the last stage that
// ran; err is nil on success.
type Observer interface {
	ObserveUpload(stage datalake.Stage, err error, size int64)
}

// Orchestrator runs the register, upload and confirm protocol.
type Orchestrator struct {
	sender   Sender
	tokens   TokenSource
	putter   Putter
	recorder Recorder
	observer Observer
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPutter replaces the HTTPPutter used for the byte transfer.
func WithPutter(p Putter) Option {
	return func(o *Orchestrator) {
		o.putter = p
	}
}

// WithRecorder sets a transition recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithObserver sets an outcome observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator.
func New(sender Sender, tokens TokenSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sender: sender,
		tokens: tokens,
		putter: HTTPPutter{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DatasetsPath is the collection path for a package's datasets.
func DatasetsPath(packageID string) string {
	return "/prod/packages/" + packageID + "/datasets"
}

// DatasetPath is the canonical path of one dataset.
func DatasetPath(packageID, datasetID string) string {
	return DatasetsPath(packageID) + "/" + datasetID
}

type run struct {
	o         *Orchestrator
	plan      *Plan
	id        uuid.UUID
	datasetID string
	log       *slog.Logger
}

// Run executes plan. Steps are strictly sequential and none is retried. On
// failure the error is a *datalake.StageError naming the step; a dataset
// registered before an upload or confirm failure is left in place.
//
// A plan that was already run returns datalake.ErrPlanConsumed without any
// I/O.
func (o *Orchestrator) Run(ctx context.Context, plan *Plan) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if !plan.claim() {
		return nil, datalake.ErrPlanConsumed
	}

	r := &run{
		o:    o,
		plan: plan,
		id:   uuid.New(),
	}
	r.log = o.logger.With("run_id", r.id, "package_id", plan.PackageID, "name", plan.DatasetName())
	r.transition(ctx, StateCreated, "", nil)

	uploadURL, err := r.register(ctx)
	if err != nil {
		return nil, r.fail(ctx, datalake.StageRegister, err)
	}
	r.transition(ctx, StateRegistered, datalake.StageRegister, nil)

	if err := r.upload(ctx, uploadURL); err != nil {
		return nil, r.fail(ctx, datalake.StageUpload, err)
	}
	r.transition(ctx, StateUploaded, datalake.StageUpload, nil)

	res, err := r.confirm(ctx)
	if err != nil {
		return nil, r.fail(ctx, datalake.StageConfirm, err)
	}
	r.transition(ctx, StateConfirmed, datalake.StageConfirm, nil)

	if o.observer != nil {
		o.observer.ObserveUpload(datalake.StageConfirm, nil, plan.Size)
	}
	r.log.Info("upload confirmed", "dataset_id", res.DatasetID, "size", plan.Size)

	return res, nil
}

func (r *run) register(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := json.Marshal(registerRequest{
		Name:        r.plan.DatasetName(),
		Type:        DatasetType,
		ContentType: r.plan.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("encode register request: %w", err)
	}

	resp, err := r.o.sender.Send(ctx, transport.Request{
		Path:   DatasetsPath(r.plan.PackageID) + "/new",
		Method: http.MethodPost,
		Body:   bytes.NewReader(body),
		Token:  r.o.tokens.Token(),
	})
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", &datalake.APIError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	var reg registerResponse
	if err := resp.Decode(&reg); err != nil {
		return "", fmt.Errorf("%w: %w", datalake.ErrMalformedResponse, err)
	}
	if reg.DatasetID == "" || reg.UploadURL == "" {
		return "", fmt.Errorf("register response missing dataset_id or uploadUrl: %w", datalake.ErrMalformedResponse)
	}

	r.datasetID = reg.DatasetID
	r.log = r.log.With("dataset_id", reg.DatasetID)
	r.log.Debug("dataset registered")

	return reg.UploadURL, nil
}

func (r *run) upload(ctx context.Context, uploadURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.o.putter.Put(ctx, uploadURL, r.plan.Body, r.plan.Size, r.plan.ContentType); err != nil {
		return err
	}
	r.log.Debug("bytes uploaded", "size", r.plan.Size)
	return nil
}

func (r *run) confirm(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := r.o.sender.Send(ctx, transport.Request{
		Path:   DatasetPath(r.plan.PackageID, r.datasetID),
		Method: http.MethodGet,
		Token:  r.o.tokens.Token(),
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &datalake.APIError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	return &Result{DatasetID: r.datasetID, Record: resp.Body}, nil
}

func (r *run) fail(ctx context.Context, stage datalake.Stage, err error) error {
	serr := &datalake.StageError{Stage: stage, DatasetID: r.datasetID, Err: err}

	// the journal write must not be lost to the caller's cancelled context
	r.transition(context.WithoutCancel(ctx), StateFailed, stage, err)

	if r.o.observer != nil {
		r.o.observer.ObserveUpload(stage, serr, r.plan.Size)
	}

	if serr.RemoteSideEffect() {
		r.log.Warn("upload failed, registered dataset left in place", "stage", stage, "err", err)
	} else {
		r.log.Warn("upload failed", "stage", stage, "err", err)
	}

	return serr
}

func (r *run) transition(ctx context.Context, state State, stage datalake.Stage, err error) {
	if r.o.recorder == nil {
		return
	}
	t := Transition{
		RunID:       r.id,
		PackageID:   r.plan.PackageID,
		DatasetID:   r.datasetID,
		Name:        r.plan.DatasetName(),
		Size:        r.plan.Size,
		ContentType: r.plan.ContentType,
		State:       state,
		Stage:       stage,
		Err:         err,
	}
	if rerr := r.o.recorder.RecordTransition(ctx, t); rerr != nil {
		r.log.Error("failed to record upload transition", "state", state, "err", rerr)
	}
}

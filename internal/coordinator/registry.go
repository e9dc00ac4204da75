package coordinator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/quillpad/quillpad/pkg/otlog"
	"github.com/quillpad/quillpad/pkg/otmetrics"
)

// Loader is the persistence boundary a Registry needs: load a
// previously stored snapshot, or save one. pkg/store's SQLite-backed
// Store implements it; Registry works with a nil Loader, in which case
// everything is in-memory only.
type Loader interface {
	Load(id string) (text string, ok bool, err error)
	Store(id, text string) error
	Count() (int, error)
}

type entry struct {
	lastAccessed time.Time
	doc          *Document
}

// Registry owns the set of live Documents, keyed by document ID, and
// the background tasks that persist and expire them.
type Registry struct {
	mu        sync.Mutex
	documents map[string]*entry
	loader    Loader

	maxDocumentSize int
	broadcastBuffer int

	ctx             context.Context
	persistInterval time.Duration
	persistJitter   time.Duration
}

// Config controls resource limits shared by every Document the Registry
// creates, and the cadence of its background snapshot writer.
type Config struct {
	MaxDocumentSize int
	BroadcastBuffer int
	PersistInterval time.Duration
	PersistJitter   time.Duration
}

// NewRegistry creates a Registry. loader may be nil to disable
// persistence. ctx bounds the lifetime of every per-document persister
// goroutine Open spawns; cancel it (or call Shutdown) to stop them all.
func NewRegistry(ctx context.Context, loader Loader, cfg Config) *Registry {
	return &Registry{
		documents:       make(map[string]*entry),
		loader:          loader,
		maxDocumentSize: cfg.MaxDocumentSize,
		broadcastBuffer: cfg.BroadcastBuffer,
		ctx:             ctx,
		persistInterval: cfg.PersistInterval,
		persistJitter:   cfg.PersistJitter,
	}
}

// Open returns the Document for id, loading it from the store or
// creating an empty one if it doesn't exist yet. The first time a
// document is opened with persistence enabled, Open starts the
// background goroutine that periodically snapshots it.
func (r *Registry) Open(id string) *Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.documents[id]; ok {
		e.lastAccessed = time.Now()
		return e.doc
	}

	var doc *Document
	if r.loader != nil {
		if text, ok, err := r.loader.Load(id); err != nil {
			otlog.L().Warnw("load document from store", "id", id, "error", err)
		} else if ok {
			doc = FromSnapshot(text, r.maxDocumentSize, r.broadcastBuffer)
		}
	}
	if doc == nil {
		doc = New(r.maxDocumentSize, r.broadcastBuffer)
	}

	r.documents[id] = &entry{lastAccessed: time.Now(), doc: doc}
	otmetrics.DocumentsOpen.Set(float64(len(r.documents)))

	if r.loader != nil {
		go r.RunPersister(r.ctx, id, doc, r.persistInterval, r.persistJitter)
	}
	return doc
}

// Count returns the number of documents currently live in memory.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.documents)
}

// StoredCount returns the number of documents recorded in the backing
// store, or 0 if persistence is disabled.
func (r *Registry) StoredCount() int {
	if r.loader == nil {
		return 0
	}
	n, err := r.loader.Count()
	if err != nil {
		otlog.L().Warnw("count stored documents", "error", err)
		return 0
	}
	return n
}

// RunPersister periodically snapshots id's document to the store until
// ctx is cancelled or the document is killed. One is started per
// document the first time it is opened with persistence enabled.
func (r *Registry) RunPersister(ctx context.Context, id string, doc *Document, interval, jitter time.Duration) {
	if r.loader == nil {
		return
	}
	lastRevision := 0
	for {
		wait := interval + time.Duration(rand.Int63n(int64(jitter)+1))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if doc.Killed() {
			return
		}
		revision := doc.Revision()
		if revision <= lastRevision {
			continue
		}
		if err := r.loader.Store(id, doc.Text()); err != nil {
			otlog.L().Errorw("persist document", "id", id, "error", err)
			continue
		}
		lastRevision = revision
		otmetrics.OperationsPersisted.Inc()
	}
}

// RunExpiry periodically kills and drops documents that haven't been
// accessed within expiry.
func (r *Registry) RunExpiry(ctx context.Context, checkEvery, expiry time.Duration) {
	ticker := time.NewTicker(checkEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.expireOnce(expiry)
		}
	}
}

func (r *Registry) expireOnce(expiry time.Duration) {
	now := time.Now()
	var expired []string
	docs := make(map[string]*Document)

	r.mu.Lock()
	for id, e := range r.documents {
		if now.Sub(e.lastAccessed) > expiry {
			expired = append(expired, id)
			docs[id] = e.doc
		}
	}
	for _, id := range expired {
		delete(r.documents, id)
	}
	otmetrics.DocumentsOpen.Set(float64(len(r.documents)))
	r.mu.Unlock()

	for _, id := range expired {
		doc := docs[id]
		if r.loader != nil {
			if err := r.loader.Store(id, doc.Text()); err != nil {
				otlog.L().Errorw("persist document before eviction", "id", id, "error", err)
			}
		}
		doc.Kill()
		otlog.L().Infow("expiring idle document", "id", id)
	}
}

// Shutdown kills every live document.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.documents {
		e.doc.Kill()
	}
}

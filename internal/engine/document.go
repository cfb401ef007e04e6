package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kadedb/kadedb"
	"github.com/kadedb/kadedb/internal"
)

type collection struct {
	schema *kadedb.DocumentSchema
	docs   map[string]kadedb.Document
}

// Document is an in-memory multi-collection store. All public operations
// hold the single engine mutex while they read or change engine state;
// sink notification after a commit runs once the mutex is released.
type Document struct {
	mu          sync.Mutex
	collections map[string]*collection
	validator   kadedb.SchemaValidator
	sinks       []kadedb.ChangeSink
}

// NewDocument constructs an empty document engine, optionally notifying
// the given sinks after every committed mutation.
func NewDocument(sinks ...kadedb.ChangeSink) *Document {
	return &Document{
		collections: make(map[string]*collection),
		validator:   kadedb.NewSchemaValidator(),
		sinks:       sinks,
	}
}

// CreateCollection registers name with an optional schema (nil means
// schema-less: any field set is accepted). AlreadyExists if name is taken.
func (d *Document) CreateCollection(name string, schema *kadedb.DocumentSchema) *kadedb.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.collections[name]; ok {
		return kadedb.AlreadyExists("engine: collection %q already exists", name)
	}
	var s *kadedb.DocumentSchema
	if schema != nil {
		s = schema.Clone()
	}
	d.collections[name] = &collection{schema: s, docs: make(map[string]kadedb.Document)}
	return nil
}

// DropCollection removes name and all its documents. NotFound if unknown.
func (d *Document) DropCollection(name string) *kadedb.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.collections[name]; !ok {
		return kadedb.NotFound("engine: collection %q does not exist", name)
	}
	delete(d.collections, name)
	return nil
}

// ListCollections returns all collection names. Order is unspecified.
func (d *Document) ListCollections() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return internal.MapKeys(d.collections)
}

// Put validates doc (when the collection has a schema) and its uniqueness
// constraints, then stores a clone under key, replacing any prior document
// at that key. Callers that don't want to choose their own key can mint one
// with kadedb.NewDocumentKey before calling Put.
func (d *Document) Put(ctx context.Context, name, key string, doc kadedb.Document) *kadedb.Status {
	if key == "" {
		return kadedb.InvalidArgument("engine: document key must not be empty")
	}
	d.mu.Lock()
	c, ok := d.collections[name]
	if !ok {
		d.mu.Unlock()
		return kadedb.NotFound("engine: collection %q does not exist", name)
	}
	if c.schema != nil {
		if st := d.validator.ValidateDocument(c.schema, doc); st != nil {
			d.mu.Unlock()
			return st
		}
		peers := make([]kadedb.Document, 0, len(c.docs))
		for k, existing := range c.docs {
			if k == key {
				continue
			}
			peers = append(peers, existing)
		}
		if st := d.validator.ValidateUniqueDocument(c.schema, peers, doc); st != nil {
			d.mu.Unlock()
			return st
		}
	}
	clone := doc.Clone()
	c.docs[key] = clone
	d.mu.Unlock()
	d.notify(ctx, name, kadedb.ChangeInsert, clone)
	return nil
}

// Get returns a clone of the document stored under key. NotFound if the
// collection or key is unknown.
func (d *Document) Get(name, key string) (kadedb.Document, *kadedb.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.collections[name]
	if !ok {
		return kadedb.Document{}, kadedb.NotFound("engine: collection %q does not exist", name)
	}
	doc, ok := c.docs[key]
	if !ok {
		return kadedb.Document{}, kadedb.NotFound("engine: key %q not found in %q", key, name)
	}
	return doc.Clone(), nil
}

// Erase removes the document stored under key. NotFound if the
// collection or key is unknown.
func (d *Document) Erase(ctx context.Context, name, key string) *kadedb.Status {
	d.mu.Lock()
	c, ok := d.collections[name]
	if !ok {
		d.mu.Unlock()
		return kadedb.NotFound("engine: collection %q does not exist", name)
	}
	doc, ok := c.docs[key]
	if !ok {
		d.mu.Unlock()
		return kadedb.NotFound("engine: key %q not found in %q", key, name)
	}
	delete(c.docs, key)
	d.mu.Unlock()
	d.notify(ctx, name, kadedb.ChangeDelete, doc)
	return nil
}

// Count returns the number of documents in name. NotFound if unknown.
func (d *Document) Count(name string) (int, *kadedb.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.collections[name]
	if !ok {
		return 0, kadedb.NotFound("engine: collection %q does not exist", name)
	}
	return len(c.docs), nil
}

// Query validates pred against the collection's schema (when present),
// then returns deep-cloned (key, Document) matches, optionally projected
// to fields.
func (d *Document) Query(name string, pred *kadedb.DocPredicate, fields []string) ([]KeyedDocument, *kadedb.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.collections[name]
	if !ok {
		return nil, kadedb.NotFound("engine: collection %q does not exist", name)
	}
	if pred != nil && c.schema != nil {
		if st := pred.Validate(c.schema); st != nil {
			return nil, st
		}
	}
	if c.schema != nil {
		for _, f := range fields {
			if _, ok := c.schema.GetField(f); !ok {
				return nil, kadedb.InvalidArgument("engine: unknown projected field %q", f)
			}
		}
	}
	var out []KeyedDocument
	for key, doc := range c.docs {
		if pred != nil && !pred.Evaluate(doc) {
			continue
		}
		out = append(out, KeyedDocument{Key: key, Document: projectDocument(doc.Clone(), fields)})
	}
	return out, nil
}

// KeyedDocument pairs a document with the key it was stored under.
type KeyedDocument struct {
	Key      string
	Document kadedb.Document
}

func projectDocument(doc kadedb.Document, fields []string) kadedb.Document {
	if len(fields) == 0 {
		return doc
	}
	out := kadedb.NewDocument()
	for _, f := range fields {
		if v, ok := doc.Fields[f]; ok {
			out.Set(f, v)
		}
	}
	return out
}

func (d *Document) notify(ctx context.Context, target string, op kadedb.ChangeOp, doc kadedb.Document) {
	if len(d.sinks) == 0 {
		return
	}
	event := kadedb.ChangeEvent{Target: target, Op: op, Documents: []kadedb.Document{doc}}
	for _, sink := range d.sinks {
		if err := sink.Notify(ctx, event); err != nil {
			kadedb.L().Warn("change sink notify failed",
				zap.String("target", target), zap.String("op", string(op)), zap.Error(err))
		}
	}
}

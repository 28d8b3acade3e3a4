package dom

import (
	"slices"

	"github.com/rs/xid"
)

// RecordType distinguishes mutation records.
type RecordType int

const (
	// ChildList records carry added or removed nodes.
	ChildList RecordType = iota
	// Attributes records carry an attribute name and its old value.
	Attributes
)

func (t RecordType) String() string {
	if t == Attributes {
		return "attributes"
	}
	return "childList"
}

// MutationRecord describes one change to the connected tree.
type MutationRecord struct {
	Type   RecordType
	Target *Node

	// Added and Removed are set for ChildList records.
	Added   []*Node
	Removed []*Node

	// AttributeName, OldValue and HadOldValue are set for Attributes records.
	AttributeName string
	OldValue      string
	HadOldValue   bool
}

// maxFlushRounds bounds Flush when observer callbacks keep mutating the tree.
const maxFlushRounds = 64

// Document owns the root node and the registered observers.
type Document struct {
	root      *Node
	observers []*Observer
}

// NewDocument creates a document with an empty root node tagged rootTag.
func NewDocument(rootTag string) *Document {
	d := &Document{}
	d.root = &Node{id: xid.New(), tag: rootTag, doc: d}
	return d
}

// Root returns the root node.
func (d *Document) Root() *Node {
	return d.root
}

// CreateElement creates a detached node owned by d.
func (d *Document) CreateElement(tag string, attrs ...Attr) *Node {
	return &Node{
		id:    xid.New(),
		tag:   tag,
		attrs: slices.Clone(attrs),
		doc:   d,
	}
}

// FindByID returns the connected node with the given identity.
func (d *Document) FindByID(id xid.ID) *Node {
	var found *Node
	d.root.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.id == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// queue hands a record to every active observer, provided the target is
// part of the connected tree.
func (d *Document) queue(rec MutationRecord) {
	if len(d.observers) == 0 || !rec.Target.IsConnected() {
		return
	}
	for _, o := range d.observers {
		o.enqueue(rec)
	}
}

// Pending reports whether any observer has undelivered records.
func (d *Document) Pending() bool {
	for _, o := range d.observers {
		if len(o.pending) > 0 {
			return true
		}
	}
	return false
}

// Flush delivers queued records to each observer's callback as one batch.
// Records queued by the callbacks themselves are delivered in further
// rounds. It returns the number of records delivered.
func (d *Document) Flush() int {
	delivered := 0
	for round := 0; round < maxFlushRounds && d.Pending(); round++ {
		for _, o := range slices.Clone(d.observers) {
			batch := o.TakeRecords()
			if len(batch) == 0 {
				continue
			}
			delivered += len(batch)
			o.callback(batch)
		}
	}
	return delivered
}

// ObserveOptions filters the records an observer receives.
type ObserveOptions struct {
	// Attributes enables attribute records.
	Attributes bool
	// AttributeFilter limits attribute records to these names when non-empty.
	AttributeFilter []string
}

// Observer receives batches of mutation records for a whole document.
type Observer struct {
	doc      *Document
	callback func([]MutationRecord)
	opts     ObserveOptions
	pending  []MutationRecord
}

// Observe registers callback for all mutations under the document root.
func (d *Document) Observe(opts ObserveOptions, callback func([]MutationRecord)) *Observer {
	o := &Observer{doc: d, callback: callback, opts: opts}
	d.observers = append(d.observers, o)
	return o
}

func (o *Observer) enqueue(rec MutationRecord) {
	if rec.Type == Attributes {
		if !o.opts.Attributes {
			return
		}
		if len(o.opts.AttributeFilter) > 0 && !slices.Contains(o.opts.AttributeFilter, rec.AttributeName) {
			return
		}
	}
	o.pending = append(o.pending, rec)
}

// TakeRecords returns and clears the undelivered records.
func (o *Observer) TakeRecords() []MutationRecord {
	records := o.pending
	o.pending = nil
	return records
}

// Disconnect stops observation and drops undelivered records.
func (o *Observer) Disconnect() {
	o.pending = nil
	if o.doc == nil {
		return
	}
	if i := slices.Index(o.doc.observers, o); i >= 0 {
		o.doc.observers = slices.Delete(o.doc.observers, i, i+1)
	}
	o.doc = nil
}

// Active reports whether the observer is still registered.
func (o *Observer) Active() bool {
	return o.doc != nil
}

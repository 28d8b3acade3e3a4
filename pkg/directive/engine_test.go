package directive

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/go-drift/weft/pkg/dom"
	wefterrors "github.com/go-drift/weft/pkg/errors"
)

type recordingHandler struct {
	errs   []*wefterrors.RuntimeError
	panics []*wefterrors.PanicError
}

func (h *recordingHandler) HandleError(err *wefterrors.RuntimeError) {
	h.errs = append(h.errs, err)
}

func (h *recordingHandler) HandlePanic(err *wefterrors.PanicError) {
	h.panics = append(h.panics, err)
}

// traceBehavior appends "name:event" for every lifecycle callback.
type traceBehavior struct {
	Base
	name    string
	log     *[]string
	failOn  string
	panicOn string
}

func (b *traceBehavior) record(event string) error {
	*b.log = append(*b.log, b.name+":"+event)
	if b.panicOn == event {
		panic(b.name + " exploded")
	}
	if b.failOn == event {
		return fmt.Errorf("%s failed", b.name)
	}
	return nil
}

func (b *traceBehavior) OnInit(context.Context) error         { return b.record("init") }
func (b *traceBehavior) OnConnected(context.Context) error    { return b.record("connected") }
func (b *traceBehavior) OnDisconnected(context.Context) error { return b.record("disconnected") }
func (b *traceBehavior) OnDestroy(context.Context) error      { return b.record("destroy") }
func (b *traceBehavior) OnAttributeChanged(_ context.Context, c AttributeChange) error {
	return b.record("attr " + c.Name + "=" + c.NewValue)
}

var _ = Describe("Engine", func() {
	var (
		mockCtrl *gomock.Controller
		ctx      context.Context
		doc      *dom.Document
		handler  *recordingHandler
		engine   *Engine
		log      []string
	)

	traced := func(name, selector string, observed ...string) *Definition {
		return MustDefinition(name, selector, func(el *dom.Node) any {
			tag := name
			if id, ok := el.Attribute("id"); ok {
				tag = name + "@" + id
			}
			return &traceBehavior{name: tag, log: &log}
		}, observed...)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		ctx = context.Background()
		doc = dom.NewDocument("body")
		handler = &recordingHandler{}
		engine = NewEngine(doc, WithErrorHandler(handler))
		log = nil
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("with an element present before start", func() {
		var (
			el       *dom.Node
			behavior *MockLifecycle
			def      *Definition
		)

		BeforeEach(func() {
			el = doc.CreateElement("button", dom.Attr{Name: "tooltip", Value: "hi"})
			Expect(doc.Root().AppendChild(el)).To(Succeed())

			behavior = NewMockLifecycle(mockCtrl)
			gomock.InOrder(
				behavior.EXPECT().OnInit(gomock.Any()).Return(nil),
				behavior.EXPECT().OnConnected(gomock.Any()).Return(nil),
			)
			def = MustDefinition("tooltip", "[tooltip]", func(*dom.Node) any { return behavior }, "tooltip")
			Expect(engine.Define(def)).To(Succeed())
			Expect(engine.Start(ctx)).To(Succeed())
		})

		It("creates exactly one connected instance", func() {
			insts := engine.Instances(el)
			Expect(insts).To(HaveLen(1))
			Expect(insts[0].State()).To(Equal(Connected))
			Expect(insts[0].Behavior()).To(BeIdenticalTo(behavior))
			Expect(engine.Instance(def, el)).To(BeIdenticalTo(insts[0]))
			Expect(engine.Len()).To(Equal(1))
		})

		It("disconnects once on removal and never again", func() {
			behavior.EXPECT().OnDisconnected(gomock.Any()).Return(nil).Times(1)

			el.Remove()
			doc.Flush()
			Expect(engine.Instance(def, el).State()).To(Equal(Disconnected))

			other := doc.CreateElement("div")
			Expect(doc.Root().AppendChild(other)).To(Succeed())
			other.SetAttribute("title", "x")
			other.Remove()
			doc.Flush()

			// Re-inserting does not revive a disconnected instance.
			Expect(doc.Root().AppendChild(el)).To(Succeed())
			el.SetAttribute("tooltip", "again")
			doc.Flush()
			Expect(engine.Instances(el)).To(HaveLen(1))
		})

		It("forwards observed attribute changes only", func() {
			gomock.InOrder(
				behavior.EXPECT().OnAttributeChanged(gomock.Any(), AttributeChange{
					Name: "tooltip", OldValue: "hi", NewValue: "bye", HadOld: true, HasNew: true,
				}).Return(nil),
				behavior.EXPECT().OnAttributeChanged(gomock.Any(), AttributeChange{
					Name: "tooltip", OldValue: "bye", HadOld: true,
				}).Return(nil),
			)

			el.SetAttribute("tooltip", "bye")
			el.SetAttribute("title", "not observed")
			el.RemoveAttribute("tooltip")
			doc.Flush()
		})

		It("destroys once on stop", func() {
			behavior.EXPECT().OnDestroy(gomock.Any()).Return(nil).Times(1)

			engine.Stop(ctx)
			engine.Stop(ctx)

			Expect(engine.Running()).To(BeFalse())
			Expect(engine.Len()).To(BeZero())
		})

		It("rejects a duplicate definition and a second start", func() {
			Expect(engine.Define(def)).To(BeAssignableToTypeOf(&wefterrors.UsageError{}))
			Expect(engine.Start(ctx)).To(BeAssignableToTypeOf(&wefterrors.UsageError{}))
		})
	})

	It("instruments an added subtree in document order", func() {
		Expect(engine.Define(traced("tip", "[tooltip]"))).To(Succeed())
		Expect(engine.Start(ctx)).To(Succeed())

		parent := doc.CreateElement("div", dom.Attr{Name: "tooltip"}, dom.Attr{Name: "id", Value: "p"})
		child := doc.CreateElement("span", dom.Attr{Name: "tooltip"}, dom.Attr{Name: "id", Value: "c"})
		Expect(parent.AppendChild(child)).To(Succeed())
		Expect(doc.Root().AppendChild(parent)).To(Succeed())
		doc.Flush()

		Expect(log).To(Equal([]string{"tip@p:init", "tip@p:connected", "tip@c:init", "tip@c:connected"}))
	})

	It("disconnects every instance in a removed subtree", func() {
		parent := doc.CreateElement("div", dom.Attr{Name: "tooltip"}, dom.Attr{Name: "id", Value: "p"})
		child := doc.CreateElement("span", dom.Attr{Name: "tooltip"}, dom.Attr{Name: "id", Value: "c"})
		Expect(parent.AppendChild(child)).To(Succeed())
		Expect(doc.Root().AppendChild(parent)).To(Succeed())
		Expect(engine.Define(traced("tip", "[tooltip]"))).To(Succeed())
		Expect(engine.Start(ctx)).To(Succeed())
		log = nil

		parent.Remove()
		doc.Flush()

		Expect(log).To(Equal([]string{"tip@p:disconnected", "tip@c:disconnected"}))
	})

	It("never connects an element added and removed in the same batch", func() {
		Expect(engine.Define(traced("tip", "[tooltip]"))).To(Succeed())
		Expect(engine.Start(ctx)).To(Succeed())

		el := doc.CreateElement("div", dom.Attr{Name: "tooltip"})
		Expect(doc.Root().AppendChild(el)).To(Succeed())
		el.Remove()
		doc.Flush()

		Expect(log).To(Equal([]string{"tip:init", "tip:disconnected"}))
	})

	It("attaches directives in definition order", func() {
		Expect(engine.Define(traced("a", "[tooltip]"))).To(Succeed())
		Expect(engine.Define(traced("b", ".tip"))).To(Succeed())
		Expect(engine.Start(ctx)).To(Succeed())

		el := doc.CreateElement("div", dom.Attr{Name: "tooltip"}, dom.Attr{Name: "class", Value: "tip"})
		Expect(doc.Root().AppendChild(el)).To(Succeed())
		doc.Flush()

		Expect(log).To(Equal([]string{"a:init", "a:connected", "b:init", "b:connected"}))
		Expect(engine.Instances(el)).To(HaveLen(2))
	})

	It("instruments elements that start matching later", func() {
		Expect(engine.Define(traced("tip", ".tip"))).To(Succeed())
		Expect(engine.Start(ctx)).To(Succeed())

		el := doc.CreateElement("div")
		Expect(doc.Root().AppendChild(el)).To(Succeed())
		doc.Flush()
		Expect(log).To(BeEmpty())

		el.AddClass("tip")
		doc.Flush()
		Expect(log).To(Equal([]string{"tip:init", "tip:connected"}))
	})

	It("applies a definition added while running to the current tree", func() {
		el := doc.CreateElement("BUTTON")
		Expect(doc.Root().AppendChild(el)).To(Succeed())
		Expect(engine.Start(ctx)).To(Succeed())

		Expect(engine.Define(traced("btn", "button"))).To(Succeed())
		Expect(log).To(Equal([]string{"btn:init", "btn:connected"}))
	})

	It("isolates faulty callbacks", func() {
		Expect(engine.Define(MustDefinition("bad", "[tooltip]", func(*dom.Node) any {
			return &traceBehavior{name: "bad", log: &log, panicOn: "init"}
		}))).To(Succeed())
		Expect(engine.Define(MustDefinition("failing", "[tooltip]", func(*dom.Node) any {
			return &traceBehavior{name: "failing", log: &log, failOn: "connected"}
		}))).To(Succeed())
		Expect(engine.Define(traced("good", "[tooltip]"))).To(Succeed())
		Expect(engine.Start(ctx)).To(Succeed())

		el := doc.CreateElement("div", dom.Attr{Name: "tooltip"})
		Expect(doc.Root().AppendChild(el)).To(Succeed())
		doc.Flush()

		Expect(log).To(Equal([]string{
			"bad:init", "bad:connected",
			"failing:init", "failing:connected",
			"good:init", "good:connected",
		}))
		Expect(handler.panics).To(HaveLen(1))
		Expect(handler.panics[0].Op).To(Equal("directive.OnInit(bad)"))
		Expect(handler.errs).To(HaveLen(1))
		Expect(handler.errs[0].Kind).To(Equal(wefterrors.KindCallback))
		Expect(handler.errs[0].Token).To(Equal("failing"))
		Expect(handler.errs[0].Op).To(Equal("directive.OnConnected"))
	})

	It("reports constructors that return nil", func() {
		Expect(engine.Define(MustDefinition("nil", "[tooltip]", func(*dom.Node) any { return nil }))).To(Succeed())
		el := doc.CreateElement("div", dom.Attr{Name: "tooltip"})
		Expect(doc.Root().AppendChild(el)).To(Succeed())
		Expect(engine.Start(ctx)).To(Succeed())

		Expect(engine.Instances(el)).To(BeEmpty())
		Expect(handler.errs).To(HaveLen(1))
		Expect(handler.errs[0].Op).To(Equal("directive.New"))
	})

	It("treats missing capabilities as no-ops", func() {
		Expect(engine.Define(MustDefinition("plain", "[tooltip]", func(*dom.Node) any {
			return struct{}{}
		}, "tooltip"))).To(Succeed())
		el := doc.CreateElement("div", dom.Attr{Name: "tooltip"})
		Expect(doc.Root().AppendChild(el)).To(Succeed())
		Expect(engine.Start(ctx)).To(Succeed())

		el.SetAttribute("tooltip", "x")
		el.Remove()
		doc.Flush()
		engine.Stop(ctx)

		Expect(handler.errs).To(BeEmpty())
		Expect(handler.panics).To(BeEmpty())
	})

	It("destroys in creation order and stops observing", func() {
		for _, id := range []string{"1", "2"} {
			Expect(doc.Root().AppendChild(doc.CreateElement("div",
				dom.Attr{Name: "tooltip"}, dom.Attr{Name: "id", Value: id}))).To(Succeed())
		}
		Expect(engine.Define(traced("tip", "[tooltip]"))).To(Succeed())
		Expect(engine.Start(ctx)).To(Succeed())
		log = nil

		engine.Stop(ctx)
		Expect(log).To(Equal([]string{"tip@1:destroy", "tip@2:destroy"}))

		log = nil
		Expect(doc.Root().AppendChild(doc.CreateElement("div", dom.Attr{Name: "tooltip"}))).To(Succeed())
		doc.Flush()
		Expect(log).To(BeEmpty())
	})

	It("passes the start context to callbacks", func() {
		type key struct{}
		ctx = context.WithValue(ctx, key{}, "value")
		behavior := NewMockLifecycle(mockCtrl)
		behavior.EXPECT().OnInit(gomock.Any()).DoAndReturn(func(c context.Context) error {
			if c.Value(key{}) != "value" {
				return errors.New("context not propagated")
			}
			return nil
		})
		behavior.EXPECT().OnConnected(gomock.Any()).Return(nil)

		Expect(doc.Root().AppendChild(doc.CreateElement("div", dom.Attr{Name: "tooltip"}))).To(Succeed())
		Expect(engine.Define(MustDefinition("tip", "[tooltip]", func(*dom.Node) any { return behavior }))).To(Succeed())
		Expect(engine.Start(ctx)).To(Succeed())
		Expect(handler.errs).To(BeEmpty())
	})
})

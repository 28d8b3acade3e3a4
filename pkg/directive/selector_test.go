package directive

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-drift/weft/pkg/dom"
)

var _ = Describe("Selector", func() {
	DescribeTable("parses supported forms",
		func(in string, kind SelectorKind, name string) {
			sel, err := ParseSelector(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(sel.Kind()).To(Equal(kind))
			Expect(sel.Name()).To(Equal(name))
		},
		Entry("attribute", "[tooltip]", ByAttribute, "tooltip"),
		Entry("class", ".tip", ByClass, "tip"),
		Entry("tag", "button", ByTag, "button"),
		Entry("upper-case tag", "BUTTON", ByTag, "button"),
		Entry("surrounding space", "  [data-x]  ", ByAttribute, "data-x"),
	)

	DescribeTable("rejects everything else",
		func(in string) {
			_, err := ParseSelector(in)
			Expect(err).To(HaveOccurred())
		},
		Entry("empty", ""),
		Entry("unterminated attribute", "[tooltip"),
		Entry("empty attribute", "[]"),
		Entry("bare dot", "."),
		Entry("compound", "div.tip"),
		Entry("descendant", "div span"),
		Entry("attribute value", "[a=b]"),
		Entry("id", "#main"),
	)

	It("matches nodes", func() {
		doc := dom.NewDocument("body")
		btn := doc.CreateElement("Button", dom.Attr{Name: "tooltip", Value: ""}, dom.Attr{Name: "class", Value: "tip primary"})
		plain := doc.CreateElement("div")

		Expect(MustParseSelector("[tooltip]").Matches(btn)).To(BeTrue())
		Expect(MustParseSelector(".primary").Matches(btn)).To(BeTrue())
		Expect(MustParseSelector("button").Matches(btn)).To(BeTrue())
		Expect(MustParseSelector("[tooltip]").Matches(plain)).To(BeFalse())
		Expect(MustParseSelector(".tip").Matches(plain)).To(BeFalse())
		Expect(MustParseSelector("button").Matches(nil)).To(BeFalse())
	})

	It("panics in MustParseSelector on invalid input", func() {
		Expect(func() { MustParseSelector("a > b") }).To(Panic())
	})
})

var _ = Describe("Definition", func() {
	ctor := func(*dom.Node) any { return &Base{} }

	It("defaults the name to the selector", func() {
		def, err := NewDefinition("", "[tooltip]", ctor)
		Expect(err).NotTo(HaveOccurred())
		Expect(def.Name()).To(Equal("[tooltip]"))
	})

	It("copies observed attributes", func() {
		observed := []string{"tooltip"}
		def := MustDefinition("tooltip", "[tooltip]", ctor, observed...)
		observed[0] = "changed"
		Expect(def.Observes("tooltip")).To(BeTrue())
		Expect(def.ObservedAttributes()).To(Equal([]string{"tooltip"}))
	})

	It("rejects a nil constructor and bad selectors", func() {
		_, err := NewDefinition("x", "[x]", nil)
		Expect(err).To(HaveOccurred())
		_, err = NewDefinition("x", "div span", ctor)
		Expect(err).To(MatchError(ContainSubstring(`directive "x"`)))
	})
})

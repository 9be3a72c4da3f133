package encoding

import "testing"

func TestEscapeXMLText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text", "Hello World", "Hello World"},
		{"ampersand", "Tom & Jerry", "Tom &amp; Jerry"},
		{"less than", "a < b", "a &lt; b"},
		{"greater than", "a > b", "a &gt; b"},
		{"quotes preserved", `He said "hello"`, `He said "hello"`},
		{"all three", "<script>&</script>", "&lt;script&gt;&amp;&lt;/script&gt;"},
		{"cjk untouched", "般若波羅蜜多", "般若波羅蜜多"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EscapeXMLText(tt.input)
			if got != tt.want {
				t.Errorf("EscapeXMLText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapeXMLAttr(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text", "Hello World", "Hello World"},
		{"double quotes", `He said "hello"`, "He said &quot;hello&quot;"},
		{"all chars", `<tag attr="val&ue">`, "&lt;tag attr=&quot;val&amp;ue&quot;&gt;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EscapeXMLAttr(tt.input)
			if got != tt.want {
				t.Errorf("EscapeXMLAttr(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"ampersand", "Tom & Jerry", "Tom &amp; Jerry"},
		{"quotes", `He said "hello"`, "He said &quot;hello&quot;"},
		{"html tag", "<script>alert('xss')</script>", "&lt;script&gt;alert('xss')&lt;/script&gt;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EscapeHTML(tt.input)
			if got != tt.want {
				t.Errorf("EscapeHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

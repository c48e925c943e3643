package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enc(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func htmlLeaf(s string) *Leaf  { return &Leaf{MimeType: MimeTextHTML, Data: enc(s)} }
func plainLeaf(s string) *Leaf { return &Leaf{MimeType: MimeTextPlain, Data: enc(s)} }

func multipart(mimeType string, children ...Part) *Multipart {
	return &Multipart{MimeType: mimeType, Children: children}
}

const invalidData = "!!!not base64!!!"

func TestExtract_PrefersHTML(t *testing.T) {
	msg := multipart("multipart/alternative",
		plainLeaf("Hello here"),
		htmlLeaf("<p>Hello <a href='http://x'>here</a></p>"),
	)

	assert.Equal(t, "Hello [here]", Extract(msg))
}

func TestExtract_Tree(t *testing.T) {
	tests := []struct {
		name string
		part Part
		want string
	}{
		{
			name: "single plain leaf",
			part: plainLeaf("Hello\t\tworld\r\n\r\n\r\n\r\nBye"),
			want: "Hello world\n\nBye",
		},
		{
			name: "single html leaf",
			part: htmlLeaf("<div>Total: <b>42.00</b></div>"),
			want: "Total: 42.00",
		},
		{
			name: "plain only alternative",
			part: multipart("multipart/alternative", plainLeaf("only plain")),
			want: "only plain",
		},
		{
			name: "alternative nested in mixed with attachment",
			part: multipart("multipart/mixed",
				multipart("multipart/alternative",
					plainLeaf("plain receipt"),
					htmlLeaf("<p>html receipt</p>"),
				),
				&Leaf{MimeType: "application/pdf", Data: enc("%PDF-1.4")},
			),
			want: "html receipt",
		},
		{
			name: "first html leaf wins",
			part: multipart("multipart/mixed", htmlLeaf("<p>first</p>"), htmlLeaf("<p>second</p>")),
			want: "first",
		},
		{
			name: "nested multipart short-circuits",
			part: multipart("multipart/mixed",
				htmlLeaf("<p>outer</p>"),
				multipart("multipart/alternative", plainLeaf("inner")),
			),
			want: "inner",
		},
		{
			name: "empty nested multipart falls through",
			part: multipart("multipart/mixed",
				multipart("multipart/related"),
				plainLeaf("fallback"),
			),
			want: "fallback",
		},
		{
			name: "empty html falls back to plain",
			part: multipart("multipart/alternative",
				plainLeaf("plain text"),
				htmlLeaf("<style>p{}</style>"),
			),
			want: "plain text",
		},
		{
			name: "no text parts",
			part: multipart("multipart/mixed", &Leaf{MimeType: "image/png", Data: enc("png")}),
			want: "",
		},
		{
			name: "non-text leaf",
			part: &Leaf{MimeType: "application/json", Data: enc(`{"a":1}`)},
			want: "",
		},
		{
			name: "nil part",
			part: nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.part))
		})
	}
}

func TestExtract_DecodeFailure(t *testing.T) {
	t.Run("sibling still extracted", func(t *testing.T) {
		msg := multipart("multipart/alternative",
			&Leaf{MimeType: MimeTextHTML, Data: invalidData},
			plainLeaf("Receipt total 42"),
		)
		body, err := ExtractBody(msg)
		require.NoError(t, err)
		assert.Equal(t, "Receipt total 42", body)
	})

	t.Run("parent level still extracted", func(t *testing.T) {
		msg := multipart("multipart/mixed",
			multipart("multipart/alternative", &Leaf{MimeType: MimeTextHTML, Data: invalidData}),
			htmlLeaf("<p>outer html</p>"),
		)
		assert.Equal(t, "outer html", Extract(msg))
	})

	t.Run("only candidate fails", func(t *testing.T) {
		msg := multipart("multipart/alternative", &Leaf{MimeType: MimeTextPlain, Data: invalidData})
		body, err := ExtractBody(msg)
		assert.Equal(t, "", body)
		assert.True(t, IsDecodeError(err))
		assert.Equal(t, ExtractErrorText, Extract(msg))
	})

	t.Run("single leaf fails", func(t *testing.T) {
		assert.Equal(t, ExtractErrorText, Extract(&Leaf{MimeType: MimeTextHTML, Data: invalidData}))
	})
}

func TestExtract_Decoding(t *testing.T) {
	tests := []struct {
		name string
		leaf *Leaf
		want string
	}{
		{"padded base64url", &Leaf{MimeType: MimeTextPlain, Data: base64.URLEncoding.EncodeToString([]byte("ab"))}, "ab"},
		{"standard alphabet", &Leaf{MimeType: MimeTextPlain, Data: "YT8+"}, "a?>"},
		{"latin-1 charset", &Leaf{MimeType: MimeTextPlain, Charset: "iso-8859-1", Data: "Q2Fm6Q"}, "Café"},
		{"invalid utf-8 replaced", &Leaf{MimeType: MimeTextPlain, Data: enc("ok \xff end")}, "ok \uFFFD end"},
		{"empty body", &Leaf{MimeType: MimeTextPlain}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.leaf))
		})
	}
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "invisible elements removed",
			in:   "<html><head><title>T</title><style>p{}</style></head><body><script>var x=1;</script><p>Total:   42.00</p>\n\n\n<p>Thanks</p></body></html>",
			want: "Total: 42.00\n\nThanks",
		},
		{
			name: "link text kept",
			in:   `<p>Track <a href="https://t.example/1">your parcel</a> now</p>`,
			want: "Track [your parcel] now",
		},
		{
			name: "link text whitespace collapsed",
			in:   "<a href=\"/o\">View\n   order</a>",
			want: "[View order]",
		},
		{
			name: "link equal to href",
			in:   `<a href="https://shop.example.com/order/123">https://shop.example.com/order/123</a>`,
			want: "[Link]",
		},
		{
			name: "url-shaped text without scheme",
			in:   `<a href="https://t.example/x">shop.example.com/order?id=123456</a>`,
			want: "[Link]",
		},
		{
			name: "image alt used",
			in:   `<a href="https://x.example"><img alt="Open order" src="b.png"></a>`,
			want: "[Open order]",
		},
		{
			name: "url-shaped alt ignored",
			in:   `<a href="https://x.example"><img alt="www.x.example" src="b.png"></a>`,
			want: "[Link]",
		},
		{
			name: "anchor without href untouched",
			in:   `<p><a name="top">Top</a></p>`,
			want: "Top",
		},
		{
			name: "indentation trimmed",
			in:   "<table>\n  <tr>\n    <td>Item</td>\n    <td>42.00</td>\n  </tr>\n</table>",
			want: "Item\n42.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HTMLToText(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a b\n\nc", NormalizeText("  a \t b\r\n\r\n\r\nc  "))
	assert.Equal(t, "", NormalizeText(" \n\n "))
}

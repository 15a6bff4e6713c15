package worker

import (
	"fmt"
	"strings"

	"github.com/example/offer-dispatch/internal/offer"
)

// renderCaption builds the shared text body for the messaging channels:
// urgency marker, title, copy, price to two decimals, discount, store and
// the resolved outbound link.
func renderCaption(post offer.Post, link string) string {
	var b strings.Builder
	b.WriteString(post.Urgency.Emoji())
	b.WriteString(" ")
	b.WriteString(post.Title)
	b.WriteString("\n\n")
	if post.Copy != "" {
		b.WriteString(post.Copy)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "💵 R$ %.2f", post.Price)
	if post.DiscountPercent > 0 {
		fmt.Fprintf(&b, " (%d%% OFF)", post.DiscountPercent)
	}
	b.WriteString("\n🏬 ")
	b.WriteString(post.StoreName)
	b.WriteString("\n👉 ")
	b.WriteString(link)
	return b.String()
}

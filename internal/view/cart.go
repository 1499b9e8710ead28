package view

import (
	"fmt"

	"storefront/internal/service"
)

const MsgEmptyCart = "Your cart is empty"

// Cart renders the bag from the same summary checkout confirms.
func (r *Renderer) Cart(sum service.CheckoutSummary) {
	if len(sum.Lines) == 0 {
		r.printf("%s\n", r.paint(r.pal.Muted, MsgEmptyCart))
		return
	}
	r.printf("%s\n", r.paint(r.pal.Title, "Shopping Bag"))
	r.lines(sum)
}

func (r *Renderer) lines(sum service.CheckoutSummary) {
	tw := r.table()
	fmt.Fprintln(tw, "ID\tNAME\tBRAND\tQTY\tUNIT\tTOTAL\t")
	for _, l := range sum.Lines {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t\n",
			l.Item.ID, l.Item.Name, l.Item.Brand, l.Item.Quantity,
			FormatPrice(l.Item.Price), FormatPrice(l.LineTotal))
	}
	_ = tw.Flush()
	r.printf("Total (%d items): %s\n", sum.Count, r.paint(r.pal.Title, FormatPrice(sum.Total)))
}

// Checkout renders the confirmation step shown before the purchase is placed.
func (r *Renderer) Checkout(sum service.CheckoutSummary) {
	r.printf("%s\n", r.paint(r.pal.Title, "Confirm Your Purchase"))
	r.lines(sum)
}

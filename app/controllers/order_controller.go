package controllers

import (
	"github.com/shashiranjanraj/mithai/app/resources"
	"github.com/shashiranjanraj/mithai/app/services"
	"github.com/shashiranjanraj/mithai/pkg/ctx"
	"github.com/shashiranjanraj/mithai/pkg/resource"
)

type PurchaseController struct {
	purchases *services.PurchaseService
}

func NewPurchaseController(purchases *services.PurchaseService) *PurchaseController {
	return &PurchaseController{purchases: purchases}
}

func (c *PurchaseController) Store(cx *ctx.Context) {
	buyer, ok := identity(cx)
	if !ok {
		return
	}
	var in services.PurchaseInput
	if !cx.BindJSON(&in) {
		return
	}

	purchase, err := c.purchases.Purchase(cx.Context(), buyer.UserID, in)
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Created(resources.NewPurchase(purchase))
}

func (c *PurchaseController) Index(cx *ctx.Context) {
	buyer, ok := identity(cx)
	if !ok {
		return
	}
	history, err := c.purchases.History(cx.Context(), buyer.UserID)
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Success(resource.Collection(history, resources.NewPurchase))
}

type ReviewController struct {
	reviews *services.ReviewService
}

func NewReviewController(reviews *services.ReviewService) *ReviewController {
	return &ReviewController{reviews: reviews}
}

func (c *ReviewController) Store(cx *ctx.Context) {
	author, ok := identity(cx)
	if !ok {
		return
	}
	var in services.ReviewInput
	if !cx.BindJSON(&in) {
		return
	}

	review, err := c.reviews.Create(cx.Context(), author.UserID, in)
	if err != nil {
		cx.Fail(err)
		return
	}
	review.User.Username = author.Username
	cx.Created(resources.NewReview(review))
}

func (c *ReviewController) ForSweet(cx *ctx.Context) {
	id, err := cx.ParamUint("id")
	if err != nil {
		cx.Fail(err)
		return
	}
	reviews, err := c.reviews.ForSweet(cx.Context(), id)
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Success(resource.Collection(reviews, resources.NewReview))
}

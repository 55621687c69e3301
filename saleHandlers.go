package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clodeb/retail_backend/models"
)

func createSaleHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "createSale")
	defer span.End()

	var input models.NewSale
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	sale, err := models.CreateSale(ctx, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func cancelSaleHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}

	if err := models.CancelSale(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sale cancelled, stock restored"})
}

func getSaleHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}

	sale, err := models.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func listSalesHandler(c *gin.Context) {
	page, limit := pagination(c)

	var paymentMethod *models.PaymentMethod
	if v := c.Query("payment_method"); v != "" {
		pm := models.PaymentMethod(v)
		paymentMethod = &pm
	}
	from, to := queryDateRange(c)

	sales, total, err := models.PaginateSales(c.Request.Context(), page, limit,
		queryIntPtr(c, "store_id"), paymentMethod, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, sales, total, page, limit)
}

package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clodeb/retail_backend/models"
)

func createProductHandler(c *gin.Context) {
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := models.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func updateProductHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}

	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := models.UpdateProduct(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func getProductHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}

	product, err := models.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func listProductsHandler(c *gin.Context) {
	page, limit := pagination(c)

	var category *models.ProductCategory
	if v := c.Query("category"); v != "" {
		cat := models.ProductCategory(v)
		category = &cat
	}
	activeOnly := c.Query("active") != "false"

	products, total, err := models.PaginateProducts(c.Request.Context(), page, limit,
		queryIntPtr(c, "store_id"), category, queryStringPtr(c, "search"), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, products, total, page, limit)
}

func deactivateProductHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}

	product, err := models.DeactivateProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func transferProductHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transferProduct")
	defer span.End()

	var input models.TransferInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	product, qty, err := models.TransferProduct(ctx, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product":     product,
		"transferred": qty,
	})
}

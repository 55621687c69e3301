package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clodeb/retail_backend/models"
)

func createAppointmentHandler(c *gin.Context) {
	var input models.NewAppointment
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	appointment, err := models.CreateAppointment(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appointment)
}

func updateAppointmentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}

	var input models.UpdateAppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	appointment, err := models.UpdateAppointment(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func attendAppointmentHandler(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "attendAppointment")
	defer span.End()

	id, ok := pathId(c)
	if !ok {
		return
	}

	appointment, sale, err := models.AttendAppointment(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointment": appointment, "sale": sale})
}

func cancelAppointmentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	appointment, err := models.CancelAppointment(c.Request.Context(), id, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func deleteAppointmentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}

	if err := models.DeleteAppointment(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "appointment deleted"})
}

func getAppointmentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}

	appointment, err := models.GetAppointment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appointment)
}

func listAppointmentsHandler(c *gin.Context) {
	page, limit := pagination(c)

	var status *models.AppointmentStatus
	if v := c.Query("status"); v != "" {
		s := models.AppointmentStatus(v)
		status = &s
	}
	from, to := queryDateRange(c)

	appointments, total, err := models.PaginateAppointments(c.Request.Context(), page, limit,
		status, queryIntPtr(c, "store_id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, appointments, total, page, limit)
}

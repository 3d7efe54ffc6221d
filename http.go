package main

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dpfg/omx-looper/playlist"
)

const defaultFeedbackLimit = 25

// APIErr is a generic structure for all errors returned from API
type APIErr struct {
	Message string `json:"message,omitempty"`
}

// FeedbackLister returns recent play events.
type FeedbackLister interface {
	Recent(limit int) ([]Play, error)
}

type api struct {
	looper   *Looper
	feedback FeedbackLister
	device   string
}

func newRouter(looper *Looper, feedback FeedbackLister, device string, log logrus.FieldLogger) *gin.Engine {
	a := &api{looper: looper, feedback: feedback, device: device}

	router := gin.New()
	router.Use(gin.Recovery(), HTTPLogger(log))

	// CORS
	router.Use(cors.Default())

	router.GET("/status", a.httpStatus)
	router.GET("/status/stream", a.streamStatus)
	router.GET("/playlist", a.httpPlaylist)
	router.GET("/feedback", a.httpFeedback)
	router.POST("/commands/:command", a.httpCommand)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (a *api) httpCommand(c *gin.Context) {
	val := c.Params.ByName("command")

	// Handle requested commmand
	err := a.looper.Command(val)
	switch {
	case errors.Is(err, ErrUnknownCommand):
		c.JSON(http.StatusBadRequest, APIErr{"Invalid command"})
		return
	case errors.Is(err, ErrCommandDisabled):
		c.JSON(http.StatusForbidden, APIErr{err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, APIErr{err.Error()})
		return
	}

	c.Status(http.StatusAccepted)
}

func (a *api) httpStatus(c *gin.Context) {
	result := struct {
		Device string `json:"device"`
		Status
	}{
		Device: a.device,
		Status: a.looper.Status(),
	}

	c.JSON(http.StatusOK, result)
}

func (a *api) httpPlaylist(c *gin.Context) {
	status := a.looper.Status()
	result := struct {
		CurrentIndex int             `json:"current_index"`
		Entries      []playlist.Item `json:"entries"`
	}{
		CurrentIndex: status.Index,
		Entries:      a.looper.Playlist(),
	}

	c.JSON(http.StatusOK, result)
}

func (a *api) httpFeedback(c *gin.Context) {
	if a.feedback == nil {
		c.JSON(http.StatusNotFound, APIErr{"Feedback store is disabled"})
		return
	}

	limit := defaultFeedbackLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, APIErr{"Invalid limit"})
			return
		}
		limit = n
	}

	plays, err := a.feedback.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, APIErr{err.Error()})
		return
	}

	c.JSON(http.StatusOK, plays)
}

func (a *api) streamStatus(c *gin.Context) {
	updates, cancel := a.looper.Subscribe()
	defer cancel()

	c.SSEvent("status", a.looper.Status())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg := <-updates:
			c.SSEvent("status", msg)
			return true
		}
	})
}

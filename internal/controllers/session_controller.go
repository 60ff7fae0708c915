package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartclass-id/classroom_core_v1/internal/session"
)

// SessionController drives the active quiz/poll session from operator
// actions.
type SessionController struct {
	Manager *session.Manager
}

type createSessionRequest struct {
	PackageID string                 `json:"package_id" binding:"required"`
	Questions []session.QuestionSpec `json:"questions" binding:"required"`
}

type openQuestionRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
}

func (sc *SessionController) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	coord, err := sc.Manager.Create(req.PackageID, req.Questions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, coord.Snapshot())
}

func (sc *SessionController) active(c *gin.Context) (*session.Coordinator, *session.Aggregator, bool) {
	coord, agg, ok := sc.Manager.Active()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session"})
		return nil, nil, false
	}
	return coord, agg, true
}

func (sc *SessionController) Get(c *gin.Context) {
	coord, _, ok := sc.active(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

func (sc *SessionController) Start(c *gin.Context) {
	coord, _, ok := sc.active(c)
	if !ok {
		return
	}
	if err := coord.Start(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

func (sc *SessionController) OpenQuestion(c *gin.Context) {
	coord, _, ok := sc.active(c)
	if !ok {
		return
	}
	var req openQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := coord.OpenQuestion(req.QuestionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

func (sc *SessionController) CloseQuestion(c *gin.Context) {
	coord, _, ok := sc.active(c)
	if !ok {
		return
	}
	if err := coord.CloseQuestion(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

func (sc *SessionController) RevealAnswer(c *gin.Context) {
	coord, _, ok := sc.active(c)
	if !ok {
		return
	}
	if err := coord.RevealAnswer(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

func (sc *SessionController) Next(c *gin.Context) {
	coord, _, ok := sc.active(c)
	if !ok {
		return
	}
	q, err := coord.Next()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (sc *SessionController) Prev(c *gin.Context) {
	coord, _, ok := sc.active(c)
	if !ok {
		return
	}
	q, err := coord.Prev()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (sc *SessionController) End(c *gin.Context) {
	coord, _, ok := sc.active(c)
	if !ok {
		return
	}
	if err := coord.End(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, coord.Snapshot())
}

func (sc *SessionController) Distribution(c *gin.Context) {
	_, agg, ok := sc.active(c)
	if !ok {
		return
	}
	dist, err := agg.Distribution(c.Param("question_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dist)
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// envelope is the JSON shape of every response.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Count   *int        `json:"count,omitempty"`
	ID      *int64      `json:"id,omitempty"`
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondList(c *gin.Context, data interface{}, count int) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data, Count: &count})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: status < http.StatusBadRequest, Message: message})
}

func respondCreated(c *gin.Context, id int64) {
	c.JSON(http.StatusCreated, envelope{Success: true, Message: "Article created", ID: &id})
}

func respondError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: err.Error()})
}

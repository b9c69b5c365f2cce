package api

import (
	"github.com/gin-gonic/gin"
	"github.com/ledgerkeep/ledgerkeep"
)

type Api struct {
	ledgerkeep *ledgerkeep.Ledgerkeep
	router     *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/reconciliations/upload", a.UploadStatement)
	router.GET("/reconciliations", a.GetReconciliationSessions)
	router.GET("/reconciliations/:id", a.GetReconciliationSession)
	router.POST("/reconciliations/:id/matches", a.RecordMatches)
	router.POST("/reconciliations/:id/unmatch", a.UnmatchEntry)
	router.POST("/reconciliations/:id/complete", a.CompleteSession)
	router.DELETE("/reconciliations/:id", a.DeleteSession)
	router.GET("/reconciliations/:id/report", a.GetReconciliationReport)
	return a.router
}

func NewAPI(l *ledgerkeep.Ledgerkeep) *Api {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{
		ledgerkeep: l,
		router:     r,
	}
}

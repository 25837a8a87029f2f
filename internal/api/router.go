package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/NewsPulse/internal/pipeline"
	"github.com/LJTian/NewsPulse/internal/snapshot"
	"github.com/LJTian/NewsPulse/internal/storage"
)

// SnapshotSource 提供当前快照原文，没有快照时返回 snapshot.ErrNoSnapshot
type SnapshotSource interface {
	Latest(ctx context.Context) ([]byte, error)
}

type ReportSource interface {
	LastReport() *pipeline.Report
}

// Trigger 异步触发一次强制运行；已有任务在跑时返回 false
type Trigger interface {
	Trigger(force bool) bool
}

type SectionRunLister interface {
	ListSectionRuns(ctx context.Context) ([]storage.SectionRun, error)
}

type Server struct {
	snapshots SnapshotSource
	reports   ReportSource
	trigger   Trigger
	sections  SectionRunLister // 未配置数据库时为 nil
}

func NewServer(snapshots SnapshotSource, reports ReportSource, trigger Trigger, sections SectionRunLister) *Server {
	return &Server{snapshots: snapshots, reports: reports, trigger: trigger, sections: sections}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/snapshot", s.getSnapshot)
		v1.GET("/runs/last", s.lastRun)
		v1.POST("/run", s.triggerRun)
		if s.sections != nil {
			v1.GET("/runs/sections", s.listSectionRuns)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getSnapshot(c *gin.Context) {
	data, err := s.snapshots.Latest(c.Request.Context())
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "no snapshot published yet",
		})
		return
	}
	if err != nil {
		log.Printf("api: load snapshot error: %v", err)
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    json.RawMessage(data),
	})
}

func (s *Server) lastRun(c *gin.Context) {
	report := s.reports.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "no run since startup",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    report,
	})
}

func (s *Server) triggerRun(c *gin.Context) {
	if !s.trigger.Trigger(true) {
		c.JSON(http.StatusConflict, gin.H{
			"code":    "busy",
			"message": "a run is already in progress",
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"code":    "accepted",
		"message": "forced run started",
	})
}

func (s *Server) listSectionRuns(c *gin.Context) {
	list, err := s.sections.ListSectionRuns(c.Request.Context())
	if err != nil {
		log.Printf("api: list section runs error: %v", err)
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    list,
	})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}

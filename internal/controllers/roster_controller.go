package controllers

import (
	"bytes"
	"encoding/csv"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/smartclass-id/classroom_core_v1/internal/attendance"
	"github.com/smartclass-id/classroom_core_v1/internal/models"
)

// RosterController manages the class roster and the device inventory. Both
// feed the coordination core: the roster bounds attendance stats, the
// inventory bounds which codes can be claimed.
type RosterController struct {
	DB         *gorm.DB
	Attendance *attendance.Tracker
}

type studentImportError struct {
	Row   int    `json:"row"`
	NIM   string `json:"nim,omitempty"`
	Error string `json:"error"`
}

type createStudentRequest struct {
	NIM      string `json:"nim" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
}

type addDeviceRequest struct {
	Code  string `json:"code" binding:"required"`
	Label string `json:"label"`
}

func (rc *RosterController) ListStudents(c *gin.Context) {
	var students []models.Student
	if err := rc.DB.Order("nim").Find(&students).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (rc *RosterController) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	student := models.Student{NIM: strings.TrimSpace(req.NIM), FullName: strings.TrimSpace(req.FullName)}
	if err := rc.DB.Create(&student).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rc.Attendance.AddToRoster(student.NIM)
	c.JSON(http.StatusCreated, student)
}

func (rc *RosterController) DeleteStudent(c *gin.Context) {
	nim := c.Param("nim")
	res := rc.DB.Where("nim = ?", nim).Delete(&models.Student{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	rc.Attendance.RemoveFromRoster(nim)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ImportStudents bulk-creates roster entries from a CSV with header columns
// nim, full_name.
func (rc *RosterController) ImportStudents(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(10 << 20); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse form"})
		return
	}
	file, fileHeader, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	if fileHeader == nil || !strings.HasSuffix(strings.ToLower(strings.TrimSpace(fileHeader.Filename)), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .csv files are allowed"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = bytes.ReplaceAll(data, []byte{'\r', '\n'}, []byte{'\n'})
	data = bytes.ReplaceAll(data, []byte{'\r'}, []byte{'\n'})
	if len(bytes.TrimSpace(data)) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is empty"})
		return
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read header"})
		return
	}
	nimCol, nameCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "nim":
			nimCol = i
		case "full_name", "nama":
			nameCol = i
		}
	}
	if nimCol == -1 || nameCol == -1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "header must contain nim and full_name"})
		return
	}

	created := 0
	var importErrors []studentImportError
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			importErrors = append(importErrors, studentImportError{Row: row, Error: "unreadable row"})
			continue
		}
		if nimCol >= len(record) || nameCol >= len(record) {
			importErrors = append(importErrors, studentImportError{Row: row, Error: "missing columns"})
			continue
		}
		nim := strings.TrimSpace(record[nimCol])
		name := strings.TrimSpace(record[nameCol])
		if nim == "" || name == "" {
			importErrors = append(importErrors, studentImportError{Row: row, NIM: nim, Error: "nim and full_name are required"})
			continue
		}
		student := models.Student{NIM: nim, FullName: name}
		if err := rc.DB.Create(&student).Error; err != nil {
			importErrors = append(importErrors, studentImportError{Row: row, NIM: nim, Error: err.Error()})
			continue
		}
		rc.Attendance.AddToRoster(nim)
		created++
	}

	c.JSON(http.StatusOK, gin.H{
		"created": created,
		"errors":  importErrors,
	})
}

func (rc *RosterController) ListDevices(c *gin.Context) {
	var devices []models.DeviceInventory
	if err := rc.DB.Order("code").Find(&devices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (rc *RosterController) AddDevice(c *gin.Context) {
	var req addDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if len(code) != 4 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device code must be 4 characters"})
		return
	}
	device := models.DeviceInventory{Code: code, Label: req.Label}
	if err := rc.DB.Create(&device).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, device)
}

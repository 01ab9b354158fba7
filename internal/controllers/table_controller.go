package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"food_crm/internal/services"
)

type TableController struct {
	tables *services.TableService
}

func NewTableController(tables *services.TableService) *TableController {
	return &TableController{tables: tables}
}

func (t *TableController) ListTables(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	tables, err := t.tables.ListActiveTables(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

type generateInput struct {
	TableNo string      `json:"table_no"`
	Range   string      `json:"range"`
	Count   json.Number `json:"count"`
}

// GenerateTables provisions tables from {"table_no": "T1-T5" | "T3" | "4"}
// or {"count": 4}. An empty body provisions one table.
func (t *TableController) GenerateTables(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var input generateInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := services.ProvisionRequest{Spec: input.TableNo}
	if req.Spec == "" {
		req.Spec = input.Range
	}
	if input.Count != "" {
		n, err := input.Count.Int64()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be an integer"})
			return
		}
		count := int(n)
		req.Count = &count
	}

	tables, err := t.tables.ProvisionTables(c.Request.Context(), user, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tables": tables, "count": len(tables)})
}

func (t *TableController) VerifyTable(c *gin.Context) {
	tableNo := c.Query("table")
	valid, err := t.tables.VerifyTable(c.Request.Context(), tableNo, c.Query("hash"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !valid {
		c.JSON(http.StatusNotFound, gin.H{"valid": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "table_no": tableNo})
}

func (t *TableController) DeleteTable(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	tableNo := c.Param("table_no")
	if err := t.tables.DeleteTable(c.Request.Context(), user, tableNo); err != nil {
		if !respondNotFound(c, err, "Table not found") {
			respondError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Table " + tableNo + " deleted"})
}

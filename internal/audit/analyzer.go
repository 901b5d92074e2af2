// Package audit flags forward statements in a changelog that destroy data or hold
// long locks. These are the statements whose generated rollback is most likely to be
// a placeholder, so they deserve a second look before the changelog is applied.
package audit

import (
	"fmt"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // required to register TiDB parser driver implementations

	"rollgen/internal/changelog"
	"rollgen/internal/core"
	"rollgen/internal/rollback"
)

// Level grades a finding.
type Level string

const (
	LevelCaution Level = "CAUTION"
	LevelDanger  Level = "DANGER"
)

// Finding is one flagged statement.
type Finding struct {
	Unit    string `json:"unit"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
	SQL     string `json:"sql"`
}

// Analysis contains the results of analyzing a single statement.
type Analysis struct {
	StatementType     string
	IsBlocking        bool
	BlockingReasons   []string
	IsDestructive     bool
	DestructiveReason string
	// Parsed is false when the statement fell back to shape classification.
	Parsed bool
}

type effect struct {
	destructiveReason string
	blockingReason    string
}

var alterTableSpecEffects = map[ast.AlterTableType]effect{
	ast.AlterTableAddColumns: {
		blockingReason: "ADD COLUMN may rewrite the table when the column has a volatile default",
	},
	ast.AlterTableDropColumn: {
		destructiveReason: "DROP COLUMN will permanently delete the column and its data",
		blockingReason:    "DROP COLUMN takes an exclusive lock on the table",
	},
	ast.AlterTableModifyColumn: {
		blockingReason: "changing a column type may rewrite the table under an exclusive lock",
	},
	ast.AlterTableChangeColumn: {
		blockingReason: "changing a column may rewrite the table under an exclusive lock",
	},
	ast.AlterTableDropIndex: {
		blockingReason: "DROP INDEX takes an exclusive lock on the table",
	},
	ast.AlterTableDropForeignKey: {
		blockingReason: "DROP FOREIGN KEY locks both referencing and referenced tables",
	},
	ast.AlterTableDropPrimaryKey: {
		blockingReason: "DROP PRIMARY KEY takes an exclusive lock on the table",
	},
	ast.AlterTableRenameTable: {
		blockingReason: "RENAME TABLE acquires an exclusive lock but is typically fast",
	},
	ast.AlterTableRenameColumn: {
		blockingReason: "RENAME COLUMN acquires an exclusive lock but is typically fast",
	},
}

// shapeEffects covers statements the SQL parser rejects, which is common for
// PostgreSQL-only syntax.
var shapeEffects = map[core.Shape]effect{
	core.ShapeDropTable: {
		destructiveReason: "DROP TABLE will permanently delete the table and all its data",
	},
	core.ShapeDropColumn: {
		destructiveReason: "DROP COLUMN will permanently delete the column and its data",
		blockingReason:    "DROP COLUMN takes an exclusive lock on the table",
	},
	core.ShapeTruncate: {
		destructiveReason: "TRUNCATE TABLE will delete all rows from the table",
		blockingReason:    "TRUNCATE TABLE acquires an exclusive lock and removes all data instantly",
	},
	core.ShapeDelete: {
		destructiveReason: "DELETE will remove rows from the table",
	},
	core.ShapeAlterColumnType: {
		blockingReason: "changing a column type may rewrite the table under an exclusive lock",
	},
	core.ShapeSetNotNull: {
		blockingReason: "SET NOT NULL scans the whole table under an exclusive lock",
	},
	core.ShapeAddForeignKey: {
		blockingReason: "ADD FOREIGN KEY may lock the table while validating existing data",
	},
	core.ShapeAddCheck: {
		blockingReason: "ADD CHECK may lock the table while validating existing data",
	},
	core.ShapeAddPrimaryKey: {
		blockingReason: "ADD PRIMARY KEY builds an index and blocks writes while it runs",
	},
	core.ShapeAddUnique: {
		blockingReason: "ADD UNIQUE builds an index and blocks writes while it runs",
	},
	core.ShapeCreateIndex: {
		blockingReason: "CREATE INDEX blocks writes for the duration of index creation",
	},
	core.ShapeDropIndex: {
		blockingReason: "DROP INDEX takes an exclusive lock on the table",
	},
	core.ShapeRenameTable: {
		blockingReason: "RENAME TABLE acquires an exclusive lock but is typically fast",
	},
	core.ShapeRenameColumn: {
		blockingReason: "RENAME COLUMN acquires an exclusive lock but is typically fast",
	},
}

// Auditor uses TiDB's AST parser for statement analysis, with the rollback classifier
// as a fallback.
type Auditor struct {
	parser *parser.Parser
}

// New creates an auditor whose parser accepts double-quoted identifiers.
func New() *Auditor {
	p := parser.New()
	p.SetSQLMode(mysql.ModeANSIQuotes)
	return &Auditor{parser: p}
}

// AnalyzeStatement parses a single SQL statement and returns analysis results.
func (a *Auditor) AnalyzeStatement(sql string) Analysis {
	stmtNodes, _, err := a.parser.Parse(sql, "", "")
	if err != nil || len(stmtNodes) == 0 {
		return analyzeShape(rollback.Classify(sql))
	}
	analysis, ok := a.analyzeNode(stmtNodes[0])
	if !ok {
		return analyzeShape(rollback.Classify(sql))
	}
	return analysis
}

// Audit analyzes the forward statements of every unit that received a rollback.
// Structured units list element tags, which are mapped through the element table.
func (a *Auditor) Audit(units []core.ChangeUnit) []Finding {
	var findings []Finding
	for _, u := range units {
		if u.Status != core.UnitAdded {
			continue
		}
		for _, stmt := range u.Statements {
			var analysis Analysis
			if shape, ok := changelog.ElementShape(stmt); ok {
				analysis = analyzeShape(shape)
			} else {
				analysis = a.AnalyzeStatement(stmt)
			}
			findings = append(findings, toFindings(u.ID, stmt, analysis)...)
		}
	}
	return findings
}

func toFindings(unit, stmt string, analysis Analysis) []Finding {
	var out []Finding
	if analysis.IsDestructive {
		out = append(out, Finding{
			Unit:    unit,
			Level:   LevelDanger,
			Message: analysis.DestructiveReason,
			SQL:     stmt,
		})
	}
	for _, reason := range analysis.BlockingReasons {
		out = append(out, Finding{
			Unit:    unit,
			Level:   LevelCaution,
			Message: fmt.Sprintf("Potentially blocking DDL: %s", reason),
			SQL:     stmt,
		})
	}
	return out
}

func analyzeShape(shape core.Shape) Analysis {
	analysis := Analysis{StatementType: shape.String()}
	if e, ok := shapeEffects[shape]; ok {
		apply(&analysis, e)
	}
	return analysis
}

func apply(analysis *Analysis, e effect) {
	if e.destructiveReason != "" {
		analysis.IsDestructive = true
		analysis.DestructiveReason = e.destructiveReason
	}
	if e.blockingReason != "" {
		analysis.IsBlocking = true
		analysis.BlockingReasons = append(analysis.BlockingReasons, e.blockingReason)
	}
}

// analyzeNode reports false for node types it has no opinion on, so the caller can try
// the classifier instead.
func (a *Auditor) analyzeNode(node ast.StmtNode) (Analysis, bool) {
	analysis := Analysis{Parsed: true}

	switch stmt := node.(type) {
	case *ast.DropTableStmt:
		analysis.StatementType = "DROP TABLE"
		apply(&analysis, shapeEffects[core.ShapeDropTable])
	case *ast.TruncateTableStmt:
		analysis.StatementType = "TRUNCATE TABLE"
		apply(&analysis, shapeEffects[core.ShapeTruncate])
	case *ast.DeleteStmt:
		analysis.StatementType = "DELETE"
		apply(&analysis, shapeEffects[core.ShapeDelete])
	case *ast.CreateIndexStmt:
		analysis.StatementType = "CREATE INDEX"
		apply(&analysis, shapeEffects[core.ShapeCreateIndex])
	case *ast.DropIndexStmt:
		analysis.StatementType = "DROP INDEX"
		apply(&analysis, shapeEffects[core.ShapeDropIndex])
	case *ast.RenameTableStmt:
		analysis.StatementType = "RENAME TABLE"
		apply(&analysis, shapeEffects[core.ShapeRenameTable])
	case *ast.AlterTableStmt:
		analysis.StatementType = "ALTER TABLE"
		for _, spec := range stmt.Specs {
			a.analyzeAlterTableSpec(spec, &analysis)
		}
	case *ast.CreateTableStmt:
		analysis.StatementType = "CREATE TABLE"
	case *ast.InsertStmt:
		analysis.StatementType = "INSERT"
	case *ast.UpdateStmt:
		analysis.StatementType = "UPDATE"
	default:
		return Analysis{}, false
	}
	return analysis, true
}

func (a *Auditor) analyzeAlterTableSpec(spec *ast.AlterTableSpec, analysis *Analysis) {
	if spec.Tp == ast.AlterTableAddConstraint {
		a.analyzeAddConstraint(spec, analysis)
		return
	}
	if e, ok := alterTableSpecEffects[spec.Tp]; ok {
		apply(analysis, e)
	}
}

func (a *Auditor) analyzeAddConstraint(spec *ast.AlterTableSpec, analysis *Analysis) {
	shape := core.ShapeAddConstraint
	if spec.Constraint != nil {
		switch spec.Constraint.Tp {
		case ast.ConstraintForeignKey:
			shape = core.ShapeAddForeignKey
		case ast.ConstraintPrimaryKey:
			shape = core.ShapeAddPrimaryKey
		case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
			shape = core.ShapeAddUnique
		case ast.ConstraintCheck:
			shape = core.ShapeAddCheck
		}
	}
	if e, ok := shapeEffects[shape]; ok {
		apply(analysis, e)
		return
	}
	apply(analysis, effect{blockingReason: "ADD CONSTRAINT may lock the table while validating existing data"})
}

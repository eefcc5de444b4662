package router

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// walkTableRefs visits every base-table reference in the parse tree, in
// document order. Extraction and rewriting share this traversal so the two
// passes always see the same set of nodes; only the per-node action differs.
func walkTableRefs(result *pg_query.ParseResult, fn func(*pg_query.RangeVar)) {
	for _, stmt := range result.Stmts {
		walkNode(stmt.Stmt, fn)
	}
}

func walkNode(node *pg_query.Node, fn func(*pg_query.RangeVar)) {
	if node == nil {
		return
	}
	if n, ok := node.Node.(*pg_query.Node_SelectStmt); ok {
		walkSelect(n.SelectStmt, fn)
	}
}

// walkSelect handles SELECT statements, including UNION/INTERSECT/EXCEPT
// branches, CTEs, the FROM clause, and subqueries in expressions.
func walkSelect(sel *pg_query.SelectStmt, fn func(*pg_query.RangeVar)) {
	if sel == nil {
		return
	}

	// Set operations: recurse into both branches.
	if sel.Larg != nil {
		walkSelect(sel.Larg, fn)
	}
	if sel.Rarg != nil {
		walkSelect(sel.Rarg, fn)
	}

	if sel.WithClause != nil {
		for _, cte := range sel.WithClause.Ctes {
			if c, ok := cte.Node.(*pg_query.Node_CommonTableExpr); ok {
				walkNode(c.CommonTableExpr.Ctequery, fn)
			}
		}
	}

	for _, from := range sel.FromClause {
		walkFrom(from, fn)
	}

	walkExpr(sel.WhereClause, fn)
	walkExpr(sel.HavingClause, fn)
	for _, target := range sel.TargetList {
		walkExpr(target, fn)
	}
}

func walkFrom(node *pg_query.Node, fn func(*pg_query.RangeVar)) {
	if node == nil {
		return
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_RangeVar:
		fn(n.RangeVar)
	case *pg_query.Node_JoinExpr:
		walkFrom(n.JoinExpr.Larg, fn)
		walkFrom(n.JoinExpr.Rarg, fn)
	case *pg_query.Node_RangeSubselect:
		walkNode(n.RangeSubselect.Subquery, fn)
	case *pg_query.Node_RangeFunction:
		// Table-valued functions are not base tables.
	}
}

// walkExpr descends into expressions looking for subqueries.
func walkExpr(node *pg_query.Node, fn func(*pg_query.RangeVar)) {
	if node == nil {
		return
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_SubLink:
		walkNode(n.SubLink.Subselect, fn)
	case *pg_query.Node_BoolExpr:
		for _, arg := range n.BoolExpr.Args {
			walkExpr(arg, fn)
		}
	case *pg_query.Node_AExpr:
		walkExpr(n.AExpr.Lexpr, fn)
		walkExpr(n.AExpr.Rexpr, fn)
	case *pg_query.Node_ResTarget:
		walkExpr(n.ResTarget.Val, fn)
	}
}

// Package stormsql translates SQL SELECT statements into Storm queries.
package stormsql

import (
	"fmt"
	"strconv"

	"github.com/araddon/dateparse"
	"github.com/asdine/storm/v3/q"
	"github.com/pkg/errors"
	"github.com/xwb1989/sqlparser"
)

// A SelectClause contains all the parsed SQL data.
type SelectClause struct {
	SelectedFields  []string
	Count           bool
	Tablename       string
	Matcher         q.Matcher
	Skip            int
	Limit           int
	OrderBy         []string
	OrderByReversed bool
}

// ParseSelect parses the given SELECT statement.
func ParseSelect(sql string) (*SelectClause, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse SQL")
	}

	s, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, errors.New("not a select statement")
	}

	var sc SelectClause

	// SELECT * ...
	// SELECT OwnerID,CreatedAt ...
	// SELECT count(*) ...
	for _, se := range s.SelectExprs {
		switch v := se.(type) {
		case *sqlparser.StarExpr:
			sc.SelectedFields = []string{}
		case *sqlparser.AliasedExpr:
			switch v := v.Expr.(type) {
			case *sqlparser.ColName:
				sc.SelectedFields = append(sc.SelectedFields, v.Name.String())
			case *sqlparser.FuncExpr:
				sc.SelectedFields = []string{}
				sc.Count = v.Name.String() == "count"
			}
		default:
			return nil, errors.New("unsupported select expression")
		}
	}

	table, ok := s.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return nil, errors.New("unsupported from expression")
	}
	sc.Tablename = sqlparser.GetTableName(table.Expr).String()

	sc.Matcher = q.And()
	if s.Where != nil {
		sc.Matcher, err = whereMatcher(s.Where.Expr)
		if err != nil {
			return nil, err
		}
	}

	// LIMIT 5
	// LIMIT 2,5
	if s.Limit != nil {
		if s.Limit.Offset != nil {
			skip, err := literal(s.Limit.Offset)
			if err != nil {
				return nil, err
			}
			sc.Skip, _ = skip.(int)
		}
		limit, err := literal(s.Limit.Rowcount)
		if err != nil {
			return nil, err
		}
		sc.Limit, _ = limit.(int)
	}

	// ORDER BY CreatedAt
	// ORDER BY CreatedAt DESC
	// ORDER BY CreatedAt DESC, OwnerID ASC    => All will be DESC due to storm limitation
	for _, ob := range s.OrderBy {
		col, ok := ob.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, errors.New("unsupported order by expression")
		}
		if ob.Direction == "desc" {
			sc.OrderByReversed = true
		}
		sc.OrderBy = append(sc.OrderBy, col.Name.String())
	}

	return &sc, nil
}

func whereMatcher(expr sqlparser.Expr) (q.Matcher, error) {
	switch v := expr.(type) {
	case *sqlparser.ComparisonExpr:
		return comparisonMatcher(v)
	case *sqlparser.IsExpr:
		if v.Operator != "is not null" {
			return nil, errors.Errorf("unsupported is expression: %s", v.Operator)
		}
		col, ok := v.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, errors.New("unsupported is expression operand")
		}
		return q.Not(q.Eq(col.Name.String(), nil)), nil
	case *sqlparser.AndExpr:
		left, err := whereMatcher(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := whereMatcher(v.Right)
		if err != nil {
			return nil, err
		}
		return q.And(left, right), nil
	case *sqlparser.OrExpr:
		left, err := whereMatcher(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := whereMatcher(v.Right)
		if err != nil {
			return nil, err
		}
		return q.Or(left, right), nil
	default:
		return nil, errors.Errorf("unsupported where expression: %T", expr)
	}
}

func comparisonMatcher(expr *sqlparser.ComparisonExpr) (q.Matcher, error) {
	col, ok := expr.Left.(*sqlparser.ColName)
	if !ok {
		return nil, errors.New("unsupported comparison operand")
	}
	field := col.Name.String()

	var value any
	switch sqlvalue := expr.Right.(type) {
	case sqlparser.BoolVal:
		value = sqlvalue
	case sqlparser.ValTuple:
		var tuple []any
		for _, t := range sqlvalue {
			entry, err := literal(t)
			if err != nil {
				return nil, err
			}
			tuple = append(tuple, entry)
		}
		value = tuple
	case *sqlparser.SQLVal:
		var err error
		value, err = literal(sqlvalue)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported comparison value: %T", expr.Right)
	}

	switch expr.Operator {
	case "=":
		return q.Eq(field, value), nil
	case "!=":
		return q.Not(q.Eq(field, value)), nil
	case ">":
		return q.Gt(field, value), nil
	case ">=":
		return q.Gte(field, value), nil
	case "<":
		return q.Lt(field, value), nil
	case "<=":
		return q.Lte(field, value), nil
	case "in":
		return q.In(field, value), nil
	case "like":
		return q.Re(field, fmt.Sprintf("%v", value)), nil
	default:
		return nil, errors.Errorf("unsupported operator: %s", expr.Operator)
	}
}

func literal(expr sqlparser.Expr) (any, error) {
	v, ok := expr.(*sqlparser.SQLVal)
	if !ok {
		return nil, errors.Errorf("unsupported literal: %T", expr)
	}

	switch v.Type {
	case sqlparser.StrVal:
		// String timestamps are compared as time.Time when they parse as one.
		if t, err := dateparse.ParseAny(string(v.Val)); err == nil {
			return t.UTC(), nil
		}
		return string(v.Val), nil
	case sqlparser.IntVal:
		n, err := strconv.Atoi(string(v.Val))
		return n, errors.Wrap(err, "could not parse integer literal")
	case sqlparser.FloatVal:
		f, err := strconv.ParseFloat(string(v.Val), 64)
		return f, errors.Wrap(err, "could not parse float literal")
	default:
		return nil, errors.Errorf("unsupported literal type: %v", v.Type)
	}
}

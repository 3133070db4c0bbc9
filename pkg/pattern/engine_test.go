package pattern

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/signature"
)

// now 固定在 2026-08-31（周一），保证测试结果与运行时刻无关
var testNow = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(signature.NewResolver(nil), DefaultParams())
}

// record 构造一条 solo1/Tractor_1 的历史记录
func record(driverID uuid.UUID, name, date string) *model.AssignmentRecord {
	return &model.AssignmentRecord{
		DriverID:     driverID,
		DriverName:   name,
		ContractType: model.ContractSolo1,
		TractorID:    "Tractor_1",
		ServiceDate:  date,
		StartTime:    "16:30",
	}
}

// mondays 返回 now 之前连续 n 个周一
func mondays(n int) []string {
	dates := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		dates = append(dates, testNow.AddDate(0, 0, -7*i).Format(model.DateLayout))
	}
	return dates
}

func TestParams_DecayFactor(t *testing.T) {
	p := DefaultParams()
	decay := p.DecayFactor()

	// 半衰期周数后权重正好减半
	halved := math.Pow(decay, float64(p.HalfLifeWeeks))
	if math.Abs(halved-0.5) > 1e-9 {
		t.Errorf("decay^halfLife = %f, want 0.5", halved)
	}
}

func TestEngine_Compute_WeightHalving(t *testing.T) {
	e := newTestEngine()
	a := uuid.New()
	b := uuid.New()

	// A 在 4 周前（半衰期处）有 2 次，B 在上周有 1 次：
	// A 权重 = 2 * 0.5 = 1.0，B 权重 = decay^1
	fourWeeksAgo := testNow.AddDate(0, 0, -28).Format(model.DateLayout)
	lastWeek := testNow.AddDate(0, 0, -7).Format(model.DateLayout)

	table := e.Compute([]*model.AssignmentRecord{
		record(a, "司机A", fourWeeksAgo),
		record(a, "司机A", fourWeeksAgo),
		record(b, "司机B", lastWeek),
	}, testNow)

	sig := "solo1|Tractor_1|16:30|1"
	rows := table.Patterns(sig)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	decay := DefaultParams().DecayFactor()
	wantA := 2 * math.Pow(decay, 4)
	wantB := math.Pow(decay, 1)

	for _, row := range rows {
		var want float64
		switch row.DriverID {
		case a:
			want = wantA
		case b:
			want = wantB
		}
		if math.Abs(row.WeightedCount-want) > 1e-9 {
			t.Errorf("driver %s weighted = %f, want %f", row.DriverName, row.WeightedCount, want)
		}
	}
}

func TestEngine_Compute_SharesSumToOne(t *testing.T) {
	e := newTestEngine()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	var records []*model.AssignmentRecord
	for i, date := range mondays(10) {
		switch {
		case i%3 == 0:
			records = append(records, record(a, "司机A", date))
		case i%3 == 1:
			records = append(records, record(b, "司机B", date))
		default:
			records = append(records, record(c, "司机C", date))
		}
	}

	table := e.Compute(records, testNow)

	var sum float64
	for _, row := range table.Patterns("solo1|Tractor_1|16:30|1") {
		sum += row.Confidence
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("share sum = %f, want 1.0", sum)
	}
}

func TestEngine_Compute_Classification(t *testing.T) {
	e := newTestEngine()
	sig := "solo1|Tractor_1|16:30|1"

	t.Run("单人历史为OWNED", func(t *testing.T) {
		a := uuid.New()
		var records []*model.AssignmentRecord
		for _, date := range mondays(6) {
			records = append(records, record(a, "司机A", date))
		}

		table := e.Compute(records, testNow)
		dist := table.Distribution(sig)
		if dist == nil {
			t.Fatal("expected distribution")
		}
		if dist.Class != model.SlotOwned {
			t.Errorf("class = %s, want owned", dist.Class)
		}
		if dist.OwnerID == nil || *dist.OwnerID != a {
			t.Error("owner should be driver A")
		}
		if math.Abs(dist.OwnerShare-1.0) > 1e-9 {
			t.Errorf("owner share = %f, want 1.0", dist.OwnerShare)
		}
	})

	t.Run("份额分散为ROTATING", func(t *testing.T) {
		// 同一周次内 6/2/2 分布：首位份额 0.6 < 0.70
		a, b, c := uuid.New(), uuid.New(), uuid.New()
		lastWeek := testNow.AddDate(0, 0, -7).Format(model.DateLayout)

		var records []*model.AssignmentRecord
		for i := 0; i < 6; i++ {
			records = append(records, record(a, "司机A", lastWeek))
		}
		for i := 0; i < 2; i++ {
			records = append(records, record(b, "司机B", lastWeek))
			records = append(records, record(c, "司机C", lastWeek))
		}

		table := e.Compute(records, testNow)
		if table.Classify(sig) != model.SlotRotating {
			t.Errorf("class = %s, want rotating", table.Classify(sig))
		}
		dist := table.Distribution(sig)
		if math.Abs(dist.OwnerShare-0.6) > 1e-9 {
			t.Errorf("top share = %f, want 0.6", dist.OwnerShare)
		}
	})

	t.Run("无历史为UNKNOWN", func(t *testing.T) {
		table := e.Compute(nil, testNow)
		if table.Classify(sig) != model.SlotUnknown {
			t.Errorf("class = %s, want unknown", table.Classify(sig))
		}
	})
}

func TestEngine_Compute_Idempotent(t *testing.T) {
	e := newTestEngine()
	a, b := uuid.New(), uuid.New()

	var records []*model.AssignmentRecord
	for i, date := range mondays(8) {
		if i%2 == 0 {
			records = append(records, record(a, "司机A", date))
		} else {
			records = append(records, record(b, "司机B", date))
		}
	}

	t1 := e.Compute(records, testNow)
	t2 := e.Compute(records, testNow)

	if len(t1.Rows) != len(t2.Rows) {
		t.Fatalf("row counts differ: %d vs %d", len(t1.Rows), len(t2.Rows))
	}
	for i := range t1.Rows {
		r1, r2 := t1.Rows[i], t2.Rows[i]
		if r1.DriverID != r2.DriverID || r1.Signature != r2.Signature {
			t.Fatalf("row %d identity differs", i)
		}
		if r1.WeightedCount != r2.WeightedCount || r1.Confidence != r2.Confidence {
			t.Errorf("row %d values differ: %+v vs %+v", i, r1, r2)
		}
	}
}

func TestEngine_Compute_SkipsRetiredAndStale(t *testing.T) {
	e := newTestEngine()
	a := uuid.New()

	retiredAt := testNow
	retired := record(a, "司机A", testNow.AddDate(0, 0, -7).Format(model.DateLayout))
	retired.RetiredAt = &retiredAt

	stale := record(a, "司机A", testNow.AddDate(0, 0, -7*13).Format(model.DateLayout))

	table := e.Compute([]*model.AssignmentRecord{retired, stale}, testNow)
	if len(table.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(table.Rows))
	}
}

func TestEngine_Compute_MissingCanonicalWarning(t *testing.T) {
	e := newTestEngine()
	a := uuid.New()

	bad := &model.AssignmentRecord{
		DriverID:     a,
		DriverName:   "司机A",
		ContractType: model.ContractSolo1,
		TractorID:    "Tractor_99",
		ServiceDate:  testNow.AddDate(0, 0, -7).Format(model.DateLayout),
	}

	table := e.Compute([]*model.AssignmentRecord{bad}, testNow)
	if len(table.Rows) != 0 {
		t.Error("record with missing mapping must be skipped")
	}
	found := false
	for _, warn := range table.Warnings {
		if warn.Type == model.WarnMissingCanonicalTime {
			found = true
		}
	}
	if !found {
		t.Error("expected missing_canonical_time warning")
	}
}

func TestEngine_Compute_TieBreakByRecentCount(t *testing.T) {
	e := newTestEngine()
	a, b := uuid.New(), uuid.New()

	// 两人同周次同次数（份额并列），B 近期更活跃：
	// A 的 2 次都在近期窗口外（9、10 周前），B 的在窗口内
	deep1 := testNow.AddDate(0, 0, -7*9).Format(model.DateLayout)
	deep2 := testNow.AddDate(0, 0, -7*10).Format(model.DateLayout)

	records := []*model.AssignmentRecord{
		record(a, "司机A", deep1),
		record(a, "司机A", deep2),
		record(b, "司机B", deep1),
		record(b, "司机B", testNow.AddDate(0, 0, -7*2).Format(model.DateLayout)),
	}

	table := e.Compute(records, testNow)
	rows := table.Patterns("solo1|Tractor_1|16:30|1")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// B 加权更高（有近期记录），应排首位；RecentCount 也应更大
	if rows[0].DriverID != b {
		t.Errorf("first row should be driver B, got %s", rows[0].DriverName)
	}
	if rows[0].RecentCount <= rows[1].RecentCount {
		t.Errorf("recent counts: first=%d second=%d", rows[0].RecentCount, rows[1].RecentCount)
	}
}

func TestTable_DriverPattern(t *testing.T) {
	e := newTestEngine()
	a := uuid.New()

	// 周一、周二各 2 次以上，周三只 1 次（不计入典型模式）
	var records []*model.AssignmentRecord
	for i := 1; i <= 2; i++ {
		monday := testNow.AddDate(0, 0, -7*i)
		records = append(records,
			record(a, "司机A", monday.Format(model.DateLayout)),
			record(a, "司机A", monday.AddDate(0, 0, 1).Format(model.DateLayout)),
		)
	}
	records = append(records, record(a, "司机A", testNow.AddDate(0, 0, -5).Format(model.DateLayout)))

	table := e.Compute(records, testNow)
	p := table.DriverPattern(a)

	if p.TypicalDays != 2 {
		t.Errorf("typical days = %d, want 2", p.TypicalDays)
	}
	if p.DayCounts["monday"] != 2 || p.DayCounts["tuesday"] != 2 {
		t.Errorf("unexpected day counts: %v", p.DayCounts)
	}
}

func TestTable_TargetDayCap(t *testing.T) {
	e := newTestEngine()

	t.Run("无历史回退到安全上限", func(t *testing.T) {
		table := e.Compute(nil, testNow)
		if got := table.TargetDayCap(uuid.New()); got != 6 {
			t.Errorf("cap = %d, want 6", got)
		}
	})

	t.Run("典型天数过低钳位到下限", func(t *testing.T) {
		a := uuid.New()
		var records []*model.AssignmentRecord
		for i := 1; i <= 3; i++ {
			records = append(records, record(a, "司机A", testNow.AddDate(0, 0, -7*i).Format(model.DateLayout)))
		}

		table := e.Compute(records, testNow)
		if p := table.DriverPattern(a); p.TypicalDays != 1 {
			t.Fatalf("typical days = %d, want 1", p.TypicalDays)
		}
		if got := table.TargetDayCap(a); got != 4 {
			t.Errorf("cap = %d, want 4", got)
		}
	})
}

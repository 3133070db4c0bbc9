// Package model 定义车队排班引擎的核心数据模型
package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ShiftSpan 已排定班次的绝对时间跨度
// 跨午夜班次的结束时间落在次日，比较重叠和休息间隔前先统一到同一时间轴
type ShiftSpan struct {
	BlockID     uuid.UUID `json:"block_id"`
	ServiceDate string    `json:"service_date"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Overlaps 检查两个班次跨度是否重叠
func (s ShiftSpan) Overlaps(other ShiftSpan) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

// DriverWeekState 单个司机在一次批次运行中的周状态
// 按日期集合记天数（同一天多个班次只计一天）
type DriverWeekState struct {
	DriverID uuid.UUID       `json:"driver_id"`
	Days     map[string]bool `json:"days"`
	Shifts   []ShiftSpan     `json:"shifts"`
}

// NewDriverWeekState 创建空的司机周状态
func NewDriverWeekState(driverID uuid.UUID) *DriverWeekState {
	return &DriverWeekState{
		DriverID: driverID,
		Days:     make(map[string]bool),
		Shifts:   make([]ShiftSpan, 0),
	}
}

// DayCount 返回本周已工作的天数
func (s *DriverWeekState) DayCount() int {
	return len(s.Days)
}

// DayCountIfAssigned 返回加上目标日期后的天数
func (s *DriverWeekState) DayCountIfAssigned(date string) int {
	if s.Days[date] {
		return len(s.Days)
	}
	return len(s.Days) + 1
}

// AddShift 记录一次已接受的分配
func (s *DriverWeekState) AddShift(span ShiftSpan) {
	s.Days[span.ServiceDate] = true
	s.Shifts = append(s.Shifts, span)
}

// ShiftsOnDate 返回指定服务日期的班次
func (s *DriverWeekState) ShiftsOnDate(date string) []ShiftSpan {
	var spans []ShiftSpan
	for _, sp := range s.Shifts {
		if sp.ServiceDate == date {
			spans = append(spans, sp)
		}
	}
	return spans
}

// SortedShifts 返回按开始时间排序的班次副本
func (s *DriverWeekState) SortedShifts() []ShiftSpan {
	sorted := make([]ShiftSpan, len(s.Shifts))
	copy(sorted, s.Shifts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})
	return sorted
}

// WeekState 一次批次运行的全部司机周状态
// 批次开始时为空，每接受一次分配即更新，批次结束后丢弃；
// 引擎假设对其独占访问，并发批次由外层调用方隔离
type WeekState struct {
	drivers map[uuid.UUID]*DriverWeekState
}

// NewWeekState 创建空的周状态
func NewWeekState() *WeekState {
	return &WeekState{drivers: make(map[uuid.UUID]*DriverWeekState)}
}

// Get 获取（或创建）司机的周状态
func (w *WeekState) Get(driverID uuid.UUID) *DriverWeekState {
	st, ok := w.drivers[driverID]
	if !ok {
		st = NewDriverWeekState(driverID)
		w.drivers[driverID] = st
	}
	return st
}

// DayCounts 返回全部司机的本周天数
func (w *WeekState) DayCounts() map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int, len(w.drivers))
	for id, st := range w.drivers {
		counts[id] = st.DayCount()
	}
	return counts
}

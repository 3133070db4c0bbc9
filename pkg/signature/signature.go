// Package signature 提供时段签名与标准开始时刻解析
//
// 同一 (合同类型, 车头) 组合的重复班次有一个合同约定的标准开始时刻，
// 与记录中的原始时刻无关；签名基于标准时刻构造，保证不同日期、
// 不同记录噪声下的同一时段解析为同一签名。
package signature

import (
	"fmt"

	"github.com/paiche/paiche/pkg/errors"
	"github.com/paiche/paiche/pkg/model"
)

// CanonicalTimeTable (合同类型, 车头) -> 标准开始时刻 HH:MM
// 作为显式注入的配置传入解析器，便于替换和独立测试
type CanonicalTimeTable map[string]string

// key 构造查表键
func key(contractType model.ContractType, tractorID string) string {
	return fmt.Sprintf("%s_%s", contractType, tractorID)
}

// DefaultCanonicalTimes 返回合同约定的默认标准开始时刻表
func DefaultCanonicalTimes() CanonicalTimeTable {
	return CanonicalTimeTable{
		// solo1（10 台车头）
		"solo1_Tractor_1":  "16:30",
		"solo1_Tractor_2":  "20:30",
		"solo1_Tractor_3":  "20:30",
		"solo1_Tractor_4":  "17:30",
		"solo1_Tractor_5":  "21:30",
		"solo1_Tractor_6":  "01:30",
		"solo1_Tractor_7":  "18:30",
		"solo1_Tractor_8":  "00:30",
		"solo1_Tractor_9":  "16:30",
		"solo1_Tractor_10": "20:30",
		// solo2（7 台车头）
		"solo2_Tractor_1": "18:30",
		"solo2_Tractor_2": "23:30",
		"solo2_Tractor_3": "21:30",
		"solo2_Tractor_4": "08:30",
		"solo2_Tractor_5": "15:30",
		"solo2_Tractor_6": "11:30",
		"solo2_Tractor_7": "16:30",
	}
}

// Resolver 签名解析器
type Resolver struct {
	table CanonicalTimeTable
}

// NewResolver 创建签名解析器
func NewResolver(table CanonicalTimeTable) *Resolver {
	if table == nil {
		table = DefaultCanonicalTimes()
	}
	return &Resolver{table: table}
}

// CanonicalTime 返回 (合同类型, 车头) 的标准开始时刻
// 映射缺失属于数据完整性错误，必须显式失败；
// 回退到原始记录时刻会污染签名空间，进而污染整张模式表
func (r *Resolver) CanonicalTime(contractType model.ContractType, tractorID string) (string, error) {
	t, ok := r.table[key(contractType, tractorID)]
	if !ok {
		return "", errors.MissingCanonicalTime(string(contractType), tractorID)
	}
	return t, nil
}

// Build 构造确定性的时段签名
// 格式: contractType|tractorID|canonicalTime|dayOfWeek（周日为 0）
func Build(contractType model.ContractType, tractorID, canonicalTime string, dayOfWeek int) string {
	return fmt.Sprintf("%s|%s|%s|%d", contractType, tractorID, canonicalTime, dayOfWeek)
}

// ForBlock 解析班次块的签名和标准开始时刻
func (r *Resolver) ForBlock(block *model.Block) (sig string, canonicalTime string, err error) {
	canonicalTime, err = r.CanonicalTime(block.ContractType, block.TractorID)
	if err != nil {
		return "", "", err
	}
	dow, err := block.Weekday()
	if err != nil {
		return "", "", err
	}
	return Build(block.ContractType, block.TractorID, canonicalTime, dow), canonicalTime, nil
}

// ForRecord 解析历史分配记录的签名
// 记录的原始 StartTime 不参与签名，只有标准时刻参与
func (r *Resolver) ForRecord(rec *model.AssignmentRecord) (string, error) {
	canonicalTime, err := r.CanonicalTime(rec.ContractType, rec.TractorID)
	if err != nil {
		return "", err
	}
	dow, err := model.DayOfWeek(rec.ServiceDate)
	if err != nil {
		return "", err
	}
	return Build(rec.ContractType, rec.TractorID, canonicalTime, dow), nil
}

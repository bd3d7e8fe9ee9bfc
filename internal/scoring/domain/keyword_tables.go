package domain

// 内置关键词表，按来源划分，词条与分值来自风控数据组维护的韩文风险词库。
// 分值为 0-100 的原始严重度，类别与十大风险维度对齐。

func defaultKeywordTables() map[Source][]KeywordEntry {
	return map[Source][]KeywordEntry{
		SourceFiling: {
			{Keyword: "횡령", Score: 50, Category: CategoryLegal},       // 挪用
			{Keyword: "배임", Score: 55, Category: CategoryLegal},       // 渎职
			{Keyword: "압수수색", Score: 60, Category: CategoryLegal},     // 搜查扣押
			{Keyword: "구속", Score: 55, Category: CategoryLegal},       // 拘捕
			{Keyword: "소송", Score: 40, Category: CategoryLegal},       // 诉讼
			{Keyword: "파산", Score: 60, Category: CategoryCredit},      // 破产
			{Keyword: "부도", Score: 80, Category: CategoryCredit},      // 违约拒付
			{Keyword: "채무불이행", Score: 75, Category: CategoryCredit},   // 债务不履行
			{Keyword: "회생절차", Score: 65, Category: CategoryCredit},    // 回生程序
			{Keyword: "자본잠식", Score: 70, Category: CategoryCredit},    // 资本蚕食
			{Keyword: "유상증자 철회", Score: 45, Category: CategoryCredit}, // 撤回增资
			{Keyword: "분식회계", Score: 75, Category: CategoryAudit},     // 财务造假
			{Keyword: "불성실공시", Score: 55, Category: CategoryGovernance},
			{Keyword: "최대주주 변경", Score: 35, Category: CategoryShareholding},
			{Keyword: "지분 매각", Score: 30, Category: CategoryShareholding},
			{Keyword: "대표이사 사임", Score: 40, Category: CategoryExecutive},
			{Keyword: "영업정지", Score: 65, Category: CategoryOperational},
			{Keyword: "중대재해", Score: 55, Category: CategoryESG},
		},
		SourceNews: {
			{Keyword: "횡령", Score: 50, Category: CategoryLegal},
			{Keyword: "배임", Score: 55, Category: CategoryLegal},
			{Keyword: "검찰 수사", Score: 50, Category: CategoryLegal}, // 检方调查
			{Keyword: "파산", Score: 60, Category: CategoryCredit},
			{Keyword: "부도설", Score: 55, Category: CategoryCredit}, // 违约传闻
			{Keyword: "신용등급 하향", Score: 50, Category: CategoryCredit},
			{Keyword: "오너리스크", Score: 45, Category: CategoryGovernance}, // 大股东风险
			{Keyword: "경영권 분쟁", Score: 40, Category: CategoryGovernance},
			{Keyword: "리콜", Score: 45, Category: CategoryOperational},
			{Keyword: "공장 화재", Score: 50, Category: CategoryOperational},
			{Keyword: "파업", Score: 40, Category: CategoryOperational},
			{Keyword: "납품 중단", Score: 45, Category: CategorySupplyChain},
			{Keyword: "원자재 수급 차질", Score: 35, Category: CategorySupplyChain},
			{Keyword: "환경오염", Score: 40, Category: CategoryESG},
			{Keyword: "산업재해", Score: 45, Category: CategoryESG},
		},
		SourceExchange: {
			{Keyword: "상장폐지", Score: 85, Category: CategoryCredit}, // 退市
			{Keyword: "관리종목", Score: 60, Category: CategoryCredit}, // 管理股票
			{Keyword: "거래정지", Score: 70, Category: CategoryCredit}, // 停牌
			{Keyword: "불성실공시법인", Score: 55, Category: CategoryGovernance},
			{Keyword: "조회공시", Score: 30, Category: CategoryGovernance}, // 问询公告
		},
		SourceAudit: {
			{Keyword: "의견거절", Score: 70, Category: CategoryAudit}, // 拒绝表示意见
			{Keyword: "부적정", Score: 65, Category: CategoryAudit},  // 否定意见
			{Keyword: "한정의견", Score: 50, Category: CategoryAudit}, // 保留意见
			{Keyword: "계속기업 불확실성", Score: 60, Category: CategoryAudit},
			{Keyword: "내부회계관리제도 비적정", Score: 55, Category: CategoryAudit},
			{Keyword: "감사범위 제한", Score: 45, Category: CategoryAudit},
		},
	}
}

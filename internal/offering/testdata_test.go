package offering

const termDoc = `{
  "Fall 2024": [
    {"code": "CSI 2110", "courseTitle": "Old", "section": "A00-LEC", "schedule": {"days": "MW", "time": "08:30 - 10:00"}}
  ],
  "Fall 2025": [
    {"code": "CSI 2110", "courseTitle": "Data Structures and Algorithms", "section": "A00-LEC",
     "schedule": {"days": ["Mo"], "time": "08:30 - 10:00"}, "instructor": "Jane Doe", "location": "STE B0138",
     "status": "Open", "meetingDates": "2025-09-03 - 2025-12-02"},
    {"code": "CSI 2110", "section": "A00-LEC",
     "schedule": {"days": ["We"], "time": "10:00 - 11:30"}, "instructor": "Jane Doe", "status": "Open",
     "meetingDates": "2025-09-03 - 2025-12-02"},
    {"code": "CSI 2110", "section": "A01-LAB", "schedule": "Tu 13:00 - 16:00", "status": "Full"},
    {"code": "CSI 2110", "section": "A02-LAB", "schedule": "Th 13:00 - 16:00", "status": "Open"},
    {"code": "CSI 2110", "section": "A03-DGD", "schedule": {"days": "F", "time": "8h30-10h00"}, "status": true},
    {"code": "CSI 2110", "section": "B00-LEC", "schedule": {"days": "TR", "time": "11:30 - 13:00"}, "status": "Closed"},
    {"code": "SEG2105", "courseTitle": "Intro to Software Engineering", "section": "A00-SEM",
     "days": "Monday, Wednesday", "time": "14:30 - 16:00", "availability": "Available"},
    {"code": "SEG2105", "section": "A01-WRK", "schedule": {"days": "F", "time": "TBA"}},
    {"courseCode": "MAT1341", "section": "A00", "schedule": {"days": "MW", "time": "10:00 - 11:30"}},
    {"courseCode": "MAT1341", "section": "A01", "schedule": {"days": "F", "time": "10:00 - 11:30"}},
    {"section": "Z00-LEC"}
  ],
  "Winter 2026": []
}`

package prompt

// 内置模板与存储中的模板使用同一种格式：{name} 为变量，{{ 和 }} 为字面量花括号

const textAnalysisTemplate = `You are an expert HR analyst specializing in resume evaluation. Analyze this resume thoroughly and provide a comprehensive assessment.

Resume Text:
{resume_text}

Provide your analysis in the following JSON format:
{{
    "overall_score": (0-100 score based on resume quality and completeness),
    "skills_extracted": ["skill1", "skill2", "skill3", ...],
    "experience_years": (total years of professional experience),
    "experience_level": "entry|junior|mid|senior|lead|executive",
    "education": {{
        "degree": "highest degree obtained",
        "university": "university name",
        "graduation_year": year_if_available,
        "gpa": gpa_if_available
    }},
    "previous_roles": [
        {{
            "title": "job title",
            "company": "company name",
            "duration_years": estimated_years_in_role,
            "technologies": ["tech1", "tech2"]
        }}
    ],
    "key_achievements": ["achievement1", "achievement2", "achievement3"],
    "analysis_summary": "comprehensive 2-3 sentence summary of candidate profile",
    "strengths": ["strength1", "strength2", "strength3"],
    "areas_for_improvement": ["area1", "area2"],
    "confidence_score": (0.0-1.0 confidence in this analysis),
    "contact_info": {{
        "email": "email_if_found",
        "phone": "phone_if_found",
        "location": "location_if_found",
        "linkedin": "linkedin_if_found"
    }}
}}

{job_context}

Return ONLY valid JSON without additional text or markdown formatting.`

const visionAnalysisTemplate = `You are an expert HR analyst. Analyze this resume document (which may be an image, scanned PDF, or complex layout) and extract all relevant information.

Extract and analyze:
1. Personal information (name, contact details)
2. Professional experience (roles, companies, durations, achievements)
3. Education (degrees, universities, years)
4. Skills and technologies
5. Projects and achievements
6. Overall qualifications assessment

Provide your analysis in the following JSON format:
{{
    "overall_score": (0-100 score based on resume quality and completeness),
    "skills_extracted": ["skill1", "skill2", "skill3", ...],
    "experience_years": (total years of professional experience),
    "experience_level": "entry|junior|mid|senior|lead|executive",
    "education": {{
        "degree": "highest degree obtained",
        "university": "university name",
        "graduation_year": year_if_available,
        "gpa": gpa_if_available
    }},
    "previous_roles": [
        {{
            "title": "job title",
            "company": "company name",
            "duration_years": estimated_years_in_role,
            "technologies": ["tech1", "tech2"]
        }}
    ],
    "key_achievements": ["achievement1", "achievement2", "achievement3"],
    "analysis_summary": "comprehensive 2-3 sentence summary of candidate profile",
    "strengths": ["strength1", "strength2", "strength3"],
    "areas_for_improvement": ["area1", "area2"],
    "confidence_score": (0.0-1.0 confidence in this analysis),
    "contact_info": {{
        "email": "email_if_found",
        "phone": "phone_if_found",
        "location": "location_if_found",
        "linkedin": "linkedin_if_found"
    }}
}}

{job_context}

Return ONLY valid JSON without additional text or markdown formatting.`

const qaAssessmentTemplate = `You are an interview preparation specialist. Based on this candidate's resume analysis, assess their readiness to answer specific job interview questions.

Candidate Profile Summary:
- Experience: {experience_years} years ({experience_level} level)
- Skills: {skills}
- Previous Roles: {previous_roles}
- Key Achievements: {achievements}
- Overall Score: {overall_score}/100

Interview Questions to Assess:
{questions}

Provide assessment in JSON format:
{{
    "qa_readiness_score": (0-100 overall readiness score),
    "question_assessments": [
        {{
            "question": "question text",
            "readiness_score": (0-100 score for this question),
            "predicted_answer_quality": "poor|fair|good|excellent",
            "reasoning": "why this score based on resume background",
            "preparation_suggestions": ["suggestion1", "suggestion2"]
        }}
    ],
    "interview_recommendations": ["recommendation1", "recommendation2"],
    "overall_assessment": "summary of interview readiness"
}}

Return ONLY valid JSON without additional text or markdown formatting.`

// JobMatchingInstruction 有岗位上下文时追加到 job_context 变量之后
const JobMatchingInstruction = `Based on this job context, enhance your analysis by adding these fields:
"job_match_score": (0-100 how well candidate matches this specific job),
"job_specific_strengths": ["strength1", "strength2"],
"job_specific_gaps": ["gap1", "gap2"]`

var builtinTemplates = map[Purpose]string{
	PurposeTextAnalysis:   textAnalysisTemplate,
	PurposeVisionAnalysis: visionAnalysisTemplate,
	PurposeQAAssessment:   qaAssessmentTemplate,
}
